// Package httpapi exposes the reminder service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

// ReminderRunner runs the daily dispatch.
type ReminderRunner interface {
	Run(ctx context.Context, today time.Time) (service.DispatchSummary, error)
}

// Options configures the HTTP surface.
type Options struct {
	AppURL     string
	CronSecret string
	Location   *time.Location
	// CompleteRate limits completion link clicks per client IP.
	CompleteRate  rate.Limit
	CompleteBurst int
}

// Server holds the handlers' dependencies.
type Server struct {
	tasks    *service.TaskService
	profiles *service.ProfileService
	runner   ReminderRunner
	opts     Options
	logger   *log.Logger
	now      func() time.Time
}

func NewServer(tasks *service.TaskService, profiles *service.ProfileService, runner ReminderRunner, opts Options, logger *log.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CompleteRate == 0 {
		opts.CompleteRate = rate.Limit(1)
	}
	if opts.CompleteBurst == 0 {
		opts.CompleteBurst = 5
	}
	return &Server{
		tasks:    tasks,
		profiles: profiles,
		runner:   runner,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RecoveryWithLog(s.logger))

	api := r.Group("/api")

	cron := api.Group("/cron", RequireBearer(s.opts.CronSecret))
	cron.GET("/send-reminders", s.sendReminders)
	cron.POST("/send-reminders", s.sendReminders)

	api.GET("/tasks/complete", RateLimiter(s.opts.CompleteRate, s.opts.CompleteBurst), s.completeByToken)

	authed := api.Group("", RequireProfile())
	authed.GET("/tasks", s.dashboard)
	authed.POST("/tasks", s.createTask)
	authed.PUT("/tasks/:id", s.updateTask)
	authed.DELETE("/tasks/:id", s.deleteTask)
	authed.POST("/tasks/:id/complete", s.completeTask)
	authed.POST("/tasks/:id/snooze", s.snoozeTask)
	authed.POST("/tasks/:id/unsnooze", s.unsnoozeTask)
	authed.POST("/tasks/:id/pause", s.pauseTask)
	authed.POST("/tasks/:id/resume", s.resumeTask)
	authed.GET("/tasks/:id/history", s.taskHistory)
	authed.DELETE("/completions/:id", s.deleteCompletion)
	authed.PUT("/profile", s.saveProfile)

	return r
}

func (s *Server) today() time.Time {
	return recurrence.DateOf(s.now().In(s.opts.Location))
}

// handleError maps service errors onto status codes. Unexpected errors are
// logged and hidden from the client.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, recurrence.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrStaleTaskState):
		c.JSON(http.StatusConflict, gin.H{"error": "task was modified concurrently, reload and retry"})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
