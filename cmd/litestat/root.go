package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "litestat",
		Short:         "Daily defect statistics pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default litestat.yaml)")

	cmd.AddCommand(
		newMigrateCmd(),
		newIngestCmd(),
		newCatalogsCmd(),
		newAggregateCmd(),
		newRunCmd(),
		newScheduleCmd(),
	)
	return cmd
}

// parseDate parses a --date flag. Empty means yesterday, the scheduler's
// default target.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		y := time.Now().AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, y.Location()), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	return day, nil
}
