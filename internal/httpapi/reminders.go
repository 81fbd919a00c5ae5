package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
)

func (s *Server) sendReminders(c *gin.Context) {
	summary, err := s.runner.Run(c.Request.Context(), s.today())
	if err != nil {
		s.logger.Error("send reminders", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// completeByToken serves the "mark as complete" link from reminders and
// sends the browser back to the dashboard.
func (s *Server) completeByToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		s.redirectError(c, "missing_token")
		return
	}

	task, err := s.tasks.CompleteByToken(c.Request.Context(), token, s.now())
	switch {
	case err == nil:
		q := url.Values{"completed": {"true"}, "task": {task.Title}}
		c.Redirect(http.StatusFound, s.opts.AppURL+"/dashboard?"+q.Encode())
	case errors.Is(err, repository.ErrNotFound):
		s.redirectError(c, "task_not_found")
	case errors.Is(err, recurrence.ErrInvalidRule):
		s.redirectError(c, "calculation_failed")
	case errors.Is(err, repository.ErrStaleTaskState):
		s.redirectError(c, "update_failed")
	default:
		s.logger.Error("complete by token", "err", err)
		s.redirectError(c, "server_error")
	}
}

func (s *Server) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, s.opts.AppURL+"/dashboard?error="+url.QueryEscape(reason))
}
