package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
)

const (
	iconDue     = "⏳"
	iconOverdue = "⚠️"
)

// Renderer turns batches into message text.
type Renderer struct {
	AppURL string
}

// CompletionLink is the one-click "mark as complete" URL for a task.
func (r Renderer) CompletionLink(task model.Task) string {
	return fmt.Sprintf("%s/api/tasks/complete?token=%s", r.AppURL, url.QueryEscape(task.CompletionToken))
}

// DashboardLink points at the web dashboard.
func (r Renderer) DashboardLink() string {
	return r.AppURL + "/dashboard"
}

// Subject names the single task, or counts them. Tasks reminded ahead of
// their due date are not called due today.
func (r Renderer) Subject(b Batch) string {
	if len(b.Tasks) == 1 {
		task := b.Tasks[0]
		if dueAfter(task, b.Date) {
			return fmt.Sprintf("Reminder: %s is due on %s", strings.TrimSpace(task.Title), recurrence.DateOf(task.NextDueDate).Format("Jan 2"))
		}
		return fmt.Sprintf("Reminder: %s is due today", strings.TrimSpace(task.Title))
	}
	if hasUpcoming(b) {
		return fmt.Sprintf("Reminder: %d tasks are due soon", len(b.Tasks))
	}
	return fmt.Sprintf("Reminder: %d tasks are due today", len(b.Tasks))
}

func dueAfter(task model.Task, day time.Time) bool {
	return recurrence.DateOf(task.NextDueDate).After(recurrence.DateOf(day))
}

// hasUpcoming reports whether a lead time put a not-yet-due task in b.
func hasUpcoming(b Batch) bool {
	for _, task := range b.Tasks {
		if dueAfter(task, b.Date) {
			return true
		}
	}
	return false
}

// ShortText renders a compact message for sms-class transports, one line per
// task.
func (r Renderer) ShortText(b Batch) string {
	var sb strings.Builder
	sb.WriteString(r.Subject(b))
	for _, task := range b.Tasks {
		due := recurrence.DateOf(task.NextDueDate)
		icon := iconDue
		if due.Before(recurrence.DateOf(b.Date)) {
			icon = iconOverdue
		}
		fmt.Fprintf(&sb, "\n%s %s (due %s)", icon, strings.TrimSpace(task.Title), due.Format(recurrence.DateLayout))
	}
	return sb.String()
}

type emailTask struct {
	Title       string
	Description string
	Due         string
	Overdue     bool
	Link        string
}

type emailData struct {
	Heading   string
	Tasks     []emailTask
	Dashboard string
}

// Email renders the subject, plain text and HTML bodies for a batch.
func (r Renderer) Email(b Batch) (subject, text, html string, err error) {
	data := emailData{
		Heading:   "Task Due Today",
		Dashboard: r.DashboardLink(),
	}
	switch n := len(b.Tasks); {
	case n == 1 && hasUpcoming(b):
		data.Heading = "Upcoming Task"
	case hasUpcoming(b):
		data.Heading = fmt.Sprintf("%d Tasks Due Soon", n)
	case n != 1:
		data.Heading = fmt.Sprintf("%d Tasks Due Today", n)
	}
	today := recurrence.DateOf(b.Date)
	for _, task := range b.Tasks {
		due := recurrence.DateOf(task.NextDueDate)
		data.Tasks = append(data.Tasks, emailTask{
			Title:       strings.TrimSpace(task.Title),
			Description: strings.TrimSpace(task.Description),
			Due:         due.Format("Jan 2, 2006"),
			Overdue:     due.Before(today),
			Link:        r.CompletionLink(task),
		})
	}

	var textBuf, htmlBuf bytes.Buffer
	if err := textTemplate.Execute(&textBuf, data); err != nil {
		return "", "", "", fmt.Errorf("execute text template: %w", err)
	}
	if err := htmlTemplate.Execute(&htmlBuf, data); err != nil {
		return "", "", "", fmt.Errorf("execute HTML template: %w", err)
	}
	return r.Subject(b), textBuf.String(), htmlBuf.String(), nil
}

var textTemplate = texttemplate.Must(texttemplate.New("reminder.txt").Parse(`{{.Heading}}
{{range .Tasks}}
- {{.Title}}{{if .Overdue}} (overdue){{end}}
  Due: {{.Due}}{{if .Description}}
  {{.Description}}{{end}}
  Mark as complete: {{.Link}}
{{end}}
Manage your tasks: {{.Dashboard}}
`))

var htmlTemplate = htmltemplate.Must(htmltemplate.New("reminder.html").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #667eea; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; color: white; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .task { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #667eea; }
        .task.overdue { border-left-color: #e5484d; }
        .due { color: #999; font-size: 14px; }
        .button { background: #667eea; color: white; padding: 10px 20px; text-decoration: none; border-radius: 6px; display: inline-block; font-weight: bold; font-size: 14px; }
        .footer { color: #999; font-size: 13px; text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; }
    </style>
</head>
<body>
    <div class="header"><h1>Task Reminder</h1></div>
    <div class="content">
        <h2>{{.Heading}}</h2>
        {{range .Tasks}}
        <div class="task{{if .Overdue}} overdue{{end}}">
            <h3>{{.Title}}</h3>
            {{if .Description}}<p>{{.Description}}</p>{{end}}
            <p class="due">Due: {{.Due}}{{if .Overdue}} (overdue){{end}}</p>
            <a class="button" href="{{.Link}}">Mark as Complete</a>
        </div>
        {{end}}
        <p class="footer">You can also manage your tasks from your <a href="{{.Dashboard}}">dashboard</a>.</p>
    </div>
</body>
</html>
`))
