package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"task-reminder/internal/bot"
	"task-reminder/internal/notify"
	"task-reminder/internal/recurrence"
)

func newRunCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send today's reminders once and print the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			today := a.today()
			if day != "" {
				if today, err = recurrence.ParseDate(day); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			var sms notify.Sender
			if a.cfg.TelegramToken != "" {
				b, err := bot.New(a.cfg.TelegramToken, a.tasks, a.profiles, a.renderer, a.cfg.Location, a.logger)
				if err != nil {
					return err
				}
				sms = b
			}

			summary, err := a.dispatcher(sms).Run(cmd.Context(), today)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "run as if today were this date (YYYY-MM-DD)")
	return cmd
}
