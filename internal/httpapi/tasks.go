package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"task-reminder/internal/model"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/service"
)

type taskRequest struct {
	Title                string               `json:"title" binding:"required"`
	Description          string               `json:"description"`
	Category             model.Category       `json:"category"`
	FrequencyType        recurrence.Frequency `json:"frequency_type" binding:"required"`
	FrequencyValue       int                  `json:"frequency_value" binding:"required"`
	DayOfMonth           *int                 `json:"day_of_month"`
	DaysOfWeek           []int                `json:"days_of_week"`
	StartDate            string               `json:"start_date"`
	ReminderLeadTimeDays *int                 `json:"reminder_lead_time_days"`
	NotifyVia            *model.Channel       `json:"notify_via"`
}

func (r taskRequest) input() (service.TaskInput, error) {
	in := service.TaskInput{
		Title:                r.Title,
		Description:          r.Description,
		Category:             r.Category,
		FrequencyType:        r.FrequencyType,
		FrequencyValue:       r.FrequencyValue,
		DayOfMonth:           r.DayOfMonth,
		DaysOfWeek:           r.DaysOfWeek,
		ReminderLeadTimeDays: r.ReminderLeadTimeDays,
		NotifyVia:            r.NotifyVia,
	}
	if r.StartDate != "" {
		d, err := recurrence.ParseDate(r.StartDate)
		if err != nil {
			return in, fmt.Errorf("%w: start_date must be YYYY-MM-DD", service.ErrValidation)
		}
		in.StartDate = d
	}
	return in, nil
}

type taskResponse struct {
	ID                   string                   `json:"id"`
	Title                string                   `json:"title"`
	Description          string                   `json:"description,omitempty"`
	Category             model.Category           `json:"category"`
	FrequencyType        recurrence.Frequency     `json:"frequency_type"`
	FrequencyValue       int                      `json:"frequency_value"`
	DayOfMonth           *int                     `json:"day_of_month,omitempty"`
	DaysOfWeek           []int                    `json:"days_of_week,omitempty"`
	Schedule             string                   `json:"schedule"`
	StartDate            string                   `json:"start_date"`
	NextDueDate          string                   `json:"next_due_date"`
	LastCompletedAt      *time.Time               `json:"last_completed_at,omitempty"`
	LastNotifiedAt       *time.Time               `json:"last_notified_at,omitempty"`
	ReminderLeadTimeDays *int                     `json:"reminder_lead_time_days,omitempty"`
	Paused               bool                     `json:"paused"`
	SnoozedUntil         *string                  `json:"snoozed_until,omitempty"`
	NotifyVia            *model.Channel           `json:"notify_via,omitempty"`
	Status               model.NotificationStatus `json:"status"`
}

func newTaskResponse(task model.Task, status model.NotificationStatus) taskResponse {
	resp := taskResponse{
		ID:                   task.ID,
		Title:                task.Title,
		Description:          task.Description,
		Category:             task.Category,
		FrequencyType:        task.FrequencyType,
		FrequencyValue:       task.FrequencyValue,
		DayOfMonth:           task.DayOfMonth,
		DaysOfWeek:           task.DaysOfWeek,
		Schedule:             task.Rule().String(),
		StartDate:            task.StartDate.Format(recurrence.DateLayout),
		NextDueDate:          task.NextDueDate.Format(recurrence.DateLayout),
		LastCompletedAt:      task.LastCompletedAt,
		LastNotifiedAt:       task.LastNotifiedAt,
		ReminderLeadTimeDays: task.ReminderLeadTimeDays,
		Paused:               task.Paused,
		NotifyVia:            task.NotifyVia,
		Status:               status,
	}
	if task.SnoozedUntil != nil {
		until := task.SnoozedUntil.Format(recurrence.DateLayout)
		resp.SnoozedUntil = &until
	}
	return resp
}

func newTaskResponses(entries []service.DashboardEntry) []taskResponse {
	out := make([]taskResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newTaskResponse(e.Task, e.Status))
	}
	return out
}

// taskResponse renders task with its reminder status for the server's today.
func (s *Server) taskResponse(task model.Task) taskResponse {
	return newTaskResponse(task, task.StatusOn(s.today(), s.opts.Location))
}

func (s *Server) dashboard(c *gin.Context) {
	today := s.today()
	d, err := s.tasks.Dashboard(c.Request.Context(), profileID(c), today)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":      today.Format(recurrence.DateLayout),
		"overdue":   newTaskResponses(d.Overdue),
		"due_today": newTaskResponses(d.DueToday),
		"upcoming":  newTaskResponses(d.Upcoming),
	})
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		s.handleError(c, err)
		return
	}
	if in.StartDate.IsZero() {
		in.StartDate = s.today()
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), profileID(c), in)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.taskResponse(*task))
}

func (s *Server) updateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		s.handleError(c, err)
		return
	}

	task, err := s.tasks.UpdateTask(c.Request.Context(), profileID(c), c.Param("id"), in)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.tasks.DeleteTask(c.Request.Context(), profileID(c), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindOptionalJSON binds a request body that may be absent.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) completeTask(c *gin.Context) {
	var req struct {
		CompletedAt *time.Time `json:"completed_at"`
		Notes       *string    `json:"notes"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at := s.now()
	if req.CompletedAt != nil {
		at = *req.CompletedAt
	}

	task, err := s.tasks.CompleteTask(c.Request.Context(), profileID(c), c.Param("id"), at, req.Notes)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

func (s *Server) snoozeTask(c *gin.Context) {
	var req struct {
		Until string `json:"until" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	until, err := recurrence.ParseDate(req.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "until must be YYYY-MM-DD"})
		return
	}

	task, err := s.tasks.Snooze(c.Request.Context(), profileID(c), c.Param("id"), until)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

func (s *Server) unsnoozeTask(c *gin.Context) {
	task, err := s.tasks.Unsnooze(c.Request.Context(), profileID(c), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

func (s *Server) pauseTask(c *gin.Context) {
	var req struct {
		Reason *string `json:"reason"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Pause(c.Request.Context(), profileID(c), c.Param("id"), req.Reason)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

func (s *Server) resumeTask(c *gin.Context) {
	task, err := s.tasks.Resume(c.Request.Context(), profileID(c), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.taskResponse(*task))
}

type completionResponse struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
	Notes       *string   `json:"notes,omitempty"`
}

type pauseResponse struct {
	ID        string     `json:"id"`
	PausedAt  time.Time  `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
}

func (s *Server) taskHistory(c *gin.Context) {
	today := s.today()
	h, err := s.tasks.History(c.Request.Context(), profileID(c), c.Param("id"), today)
	if err != nil {
		s.handleError(c, err)
		return
	}

	completions := make([]completionResponse, 0, len(h.Completions))
	for _, cm := range h.Completions {
		completions = append(completions, completionResponse{ID: cm.ID, CompletedAt: cm.CompletedAt, Notes: cm.Notes})
	}
	pauses := make([]pauseResponse, 0, len(h.Pauses))
	for _, p := range h.Pauses {
		pauses = append(pauses, pauseResponse{ID: p.ID, PausedAt: p.PausedAt, ResumedAt: p.ResumedAt, Reason: p.Reason})
	}

	c.JSON(http.StatusOK, gin.H{
		"task":        newTaskResponse(h.Task, h.Task.StatusOn(today, s.opts.Location)),
		"completions": completions,
		"pauses":      pauses,
		"stats":       h.Stats,
	})
}

func (s *Server) deleteCompletion(c *gin.Context) {
	if err := s.tasks.DeleteCompletion(c.Request.Context(), profileID(c), c.Param("id")); err != nil {
		s.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) saveProfile(c *gin.Context) {
	var req struct {
		Email     string        `json:"email" binding:"required"`
		Phone     string        `json:"phone"`
		NotifyVia model.Channel `json:"notify_via"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.profiles.Save(c.Request.Context(), service.ProfileInput{
		ID:        profileID(c),
		Email:     req.Email,
		Phone:     req.Phone,
		NotifyVia: req.NotifyVia,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              p.ID,
		"email":           p.Email,
		"phone":           p.Phone,
		"notify_via":      p.NotifyVia,
		"telegram_linked": p.TelegramChatID != 0,
	})
}
