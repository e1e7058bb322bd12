package main

import (
	"github.com/spf13/cobra"
)

func newAggregateCmd() *cobra.Command {
	var facility, date string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge one day's lake facts into the statistics store",
		Long: `Merge one day's lake facts into the statistics store.

Runs on local data only; ingest the day first. Re-running the same day
accumulates glass_stats counts, see the aggregation_runs log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			facilities, err := a.resolveFacilities(facility)
			if err != nil {
				return err
			}
			for _, f := range facilities {
				run, err := a.stats.StartRun(cmd.Context(), f, day)
				if err != nil {
					return err
				}
				counts, aggErr := a.engine.AggregateDay(cmd.Context(), f, day)
				if err := a.stats.FinishRun(cmd.Context(), run, counts, aggErr); err != nil {
					return err
				}
				if aggErr != nil {
					return aggErr
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&facility, "facility", "", "facility code (default: all configured)")
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	return cmd
}
