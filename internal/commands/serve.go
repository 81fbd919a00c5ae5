package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"task-reminder/internal/bot"
	"task-reminder/internal/httpapi"
	"task-reminder/internal/notify"
	"task-reminder/internal/recurrence"
	"task-reminder/internal/service"
)

const (
	dispatchTimeout = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var noCron bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the Telegram bot and the daily reminder run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.CronSecret == "" {
				return errors.New("CRON_SECRET must be set to serve")
			}
			if !a.cfg.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			var telegram *bot.Bot
			var sms notify.Sender
			if a.cfg.TelegramToken != "" {
				if telegram, err = bot.New(a.cfg.TelegramToken, a.tasks, a.profiles, a.renderer, a.cfg.Location, a.logger); err != nil {
					return err
				}
				sms = telegram
			}
			dispatcher := a.dispatcher(sms)

			if !noCron {
				scheduler := service.NewSchedulerService(a.cfg.Location)
				id, err := scheduler.ScheduleDaily(a.cfg.DailyRunAt, func() {
					runDaily(ctx, a, dispatcher)
				})
				if err != nil {
					return fmt.Errorf("schedule reminders: %w", err)
				}
				scheduler.Start()
				defer scheduler.Stop()
				a.logger.Info("daily run scheduled", "at", a.cfg.DailyRunAt, "next", scheduler.Next(id))
			}

			if telegram != nil {
				go func() {
					if err := telegram.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						a.logger.Error("bot stopped with error", "err", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           httpapi.NewServer(a.tasks, a.profiles, dispatcher, httpapi.Options{AppURL: a.cfg.AppURL, CronSecret: a.cfg.CronSecret, Location: a.cfg.Location}, a.logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&noCron, "no-cron", false, "do not run reminders in-process; rely on the HTTP trigger")
	return cmd
}

func runDaily(ctx context.Context, a *app, dispatcher *service.Dispatcher) {
	jobCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	today := a.today()
	if _, err := dispatcher.Run(jobCtx, today); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("daily run failed", "date", today.Format(recurrence.DateLayout), "err", err)
	}
}
