// Package bot is the Telegram side of the reminder service: it carries the
// short-message channel and lets a linked chat list and complete tasks.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/model"
	"task-reminder/internal/notify"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

const (
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

// messenger is the part of the Telegram API the bot writes through.
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api        messenger
	poller     *tgbotapi.BotAPI
	taskSvc    *service.TaskService
	profileSvc *service.ProfileService
	renderer   notify.Renderer
	logger     *log.Logger
	location   *time.Location
	now        func() time.Time
}

func New(token string, taskSvc *service.TaskService, profileSvc *service.ProfileService, renderer notify.Renderer, loc *time.Location, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	b := newBot(api, taskSvc, profileSvc, renderer, loc, logger)
	b.poller = api
	return b, nil
}

func newBot(api messenger, taskSvc *service.TaskService, profileSvc *service.ProfileService, renderer notify.Renderer, loc *time.Location, logger *log.Logger) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:        api,
		taskSvc:    taskSvc,
		profileSvc: profileSvc,
		renderer:   renderer,
		logger:     logger,
		location:   loc,
		now:        time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.poller == nil {
		return errors.New("bot has no telegram connection")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.poller.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.poller.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			b.logger.Error("handle message", "chat", msg.Chat.ID, "err", err)
		}
	}

	return ctx.Err()
}

// Channel implements notify.Sender; the bot carries short messages.
func (b *Bot) Channel() model.Channel {
	return model.ChannelSMS
}

// Address is the linked chat id, or "" when the profile never linked a chat.
func (b *Bot) Address(p model.Profile) string {
	if p.TelegramChatID == 0 {
		return ""
	}
	return strconv.FormatInt(p.TelegramChatID, 10)
}

// Send delivers a reminder batch to the chat in the recipient address.
func (b *Bot) Send(ctx context.Context, batch notify.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(batch.Recipient.Address, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", batch.Recipient.Address, err)
	}
	return b.sendText(chatID, formatBatch(b.renderer, batch))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only understand commands. Send /help for the list.")
	}

	b.logger.Debug("command", "chat", msg.Chat.ID, "command", msg.Command())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "due":
		return b.handleDue(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Send /help for the list.")
	}
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /start &lt;email&gt; — link this chat to your account\n" +
	"• /due — tasks due today or overdue\n" +
	"• /done &lt;code&gt; — mark a task complete\n" +
	"• /help — this message"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	email := strings.TrimSpace(msg.CommandArguments())
	if email == "" {
		return b.sendText(msg.Chat.ID, "👋 Send /start &lt;email&gt; with the email address of your account to get reminders here.")
	}

	profile, err := b.profileSvc.LinkTelegram(ctx, email, msg.Chat.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(msg.Chat.ID, "No account is registered under that email.")
	case err != nil:
		return err
	}

	b.logger.Info("telegram linked", "profile", profile.ID, "chat", msg.Chat.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s Linked to <b>%s</b>. Text reminders will arrive in this chat.\n\n%s",
		iconDone, escape(profile.Email), helpText))
}

func (b *Bot) handleDue(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.profileSvc.FindByTelegramChat(ctx, msg.Chat.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(msg.Chat.ID, notLinkedText)
	case err != nil:
		return err
	}

	dashboard, err := b.taskSvc.Dashboard(ctx, profile.ID, b.today())
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, formatDue(dashboard))
}

const notLinkedText = "This chat is not linked yet. Send /start &lt;email&gt; first."

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	token := strings.TrimSpace(msg.CommandArguments())
	if token == "" {
		return b.sendText(msg.Chat.ID, "Send /done &lt;code&gt; with the code from a reminder.")
	}

	task, err := b.taskSvc.CompleteByToken(ctx, token, b.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(msg.Chat.ID, "That code is no longer valid. The task may already be done.")
	case errors.Is(err, repository.ErrStaleTaskState):
		return b.sendText(msg.Chat.ID, "The task was just updated elsewhere. Check /due and try again.")
	case errors.Is(err, recurrence.ErrInvalidRule):
		return b.sendText(msg.Chat.ID, "Could not work out the next due date for this task.")
	case err != nil:
		return err
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s <b>%s</b> done. Next due %s.",
		iconDone, escape(task.Title), task.NextDueDate.Format(recurrence.DateLayout)))
}

func (b *Bot) today() time.Time {
	return recurrence.DateOf(b.now().In(b.location))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func formatBatch(r notify.Renderer, batch notify.Batch) string {
	var sb strings.Builder
	sb.WriteString(escape(r.ShortText(batch)))
	sb.WriteString("\n\nTo mark one complete:")
	for _, task := range batch.Tasks {
		fmt.Fprintf(&sb, "\n• %s: /done <code>%s</code>", escape(shortTitle(task.Title, 40)), escape(task.CompletionToken))
	}
	return sb.String()
}

func formatDue(d *service.Dashboard) string {
	if len(d.Overdue) == 0 && len(d.DueToday) == 0 {
		return "🎉 Nothing due today."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>Due on %s</b>", d.Date.Format(recurrence.DateLayout))
	for _, e := range d.Overdue {
		writeDueLine(&sb, iconOverdue, e)
	}
	for _, e := range d.DueToday {
		writeDueLine(&sb, iconDue, e)
	}
	return sb.String()
}

func writeDueLine(sb *strings.Builder, icon string, e service.DashboardEntry) {
	fmt.Fprintf(sb, "\n%s %s (due %s)", icon, escape(e.Task.Title), e.Task.NextDueDate.Format(recurrence.DateLayout))
	switch e.Status {
	case model.StatusPaused:
		sb.WriteString(" · paused")
	case model.StatusSnoozed:
		sb.WriteString(" · snoozed")
	}
	fmt.Fprintf(sb, "\n   /done <code>%s</code>", escape(e.Task.CompletionToken))
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
