package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"task-reminder/internal/recurrence"
)

func newNextCmd() *cobra.Command {
	var (
		frequency  string
		interval   int
		dayOfMonth int
		weekdays   []int
		from       string
		count      int
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next due dates for a recurrence rule",
		Example: `  taskreminder next --frequency monthly --day-of-month 31 --from 2024-01-31
  taskreminder next --frequency weekly --weekdays 1,3,5 --from 2024-03-06 --count 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor := recurrence.DateOf(time.Now())
			if from != "" {
				d, err := recurrence.ParseDate(from)
				if err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
				anchor = d
			}

			days, err := recurrence.ParseWeekdays(weekdays)
			if err != nil {
				return err
			}
			rule := recurrence.Rule{
				Frequency:  recurrence.Frequency(frequency),
				Interval:   interval,
				DayOfMonth: dayOfMonth,
				Weekdays:   days,
			}
			strategy, err := recurrence.StrategyFor(rule)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s from %s\n", rule, anchor.Format(recurrence.DateLayout))
			for i := 0; i < max(count, 1); i++ {
				anchor = strategy.Next(anchor)
				fmt.Fprintf(out, "%s %s\n", anchor.Format(recurrence.DateLayout), anchor.Weekday().String()[:3])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frequency, "frequency", string(recurrence.Daily), "daily, weekly, monthly, yearly or custom")
	cmd.Flags().IntVar(&interval, "interval", 1, "every N days/weeks/months/years")
	cmd.Flags().IntVar(&dayOfMonth, "day-of-month", 0, "pin monthly rules to this day (1-31)")
	cmd.Flags().IntSliceVar(&weekdays, "weekdays", nil, "pin weekly rules to these weekdays (0=Sunday..6=Saturday)")
	cmd.Flags().StringVar(&from, "from", "", "anchor date, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&count, "count", 1, "how many successive dates to print")
	return cmd
}
