package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"task-reminder/internal/config"
	"task-reminder/internal/logger"
	"task-reminder/internal/model"
	"task-reminder/internal/notify"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

// app is the wired process: config, logger, store and services.
type app struct {
	cfg       config.Config
	logger    *log.Logger
	logCloser io.Closer
	store     *repository.Store
	tasks     *service.TaskService
	profiles  *service.ProfileService
	renderer  notify.Renderer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	l, closer, err := logger.New(logger.Config{Debug: cfg.Debug, Dir: cfg.LogDir})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, l)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db)

	return &app{
		cfg:       cfg,
		logger:    l,
		logCloser: closer,
		store:     store,
		tasks:     service.NewTaskService(store, cfg.Location, l),
		profiles:  service.NewProfileService(store.Profiles),
		renderer:  notify.Renderer{AppURL: cfg.AppURL},
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.logCloser.Close())
}

// dispatcher wires the senders. Channels without a configured transport log
// their batches instead.
func (a *app) dispatcher(sms notify.Sender) *service.Dispatcher {
	var email notify.Sender = notify.NewLogSender(model.ChannelEmail, a.renderer, a.logger)
	if a.cfg.SMTP.Enabled() {
		email = notify.NewSMTPSender(a.cfg.SMTP, a.renderer)
	} else {
		a.logger.Warn("SMTP_HOST not set, email reminders are logged only")
	}
	if sms == nil {
		a.logger.Warn("TELEGRAM_TOKEN not set, short-message reminders are logged only")
		sms = notify.NewLogSender(model.ChannelSMS, a.renderer, a.logger)
	}

	limiter := rate.NewLimiter(rate.Limit(a.cfg.SendRatePerSecond), 1)
	return service.NewDispatcher(a.store.Tasks, []notify.Sender{email, sms}, a.cfg.StampPolicy, limiter, a.cfg.Location, a.logger)
}

func (a *app) today() time.Time {
	return recurrence.DateOf(time.Now().In(a.cfg.Location))
}
