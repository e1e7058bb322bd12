package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var facility, date, from, to string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: ingest, catalogs, aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" && (from != "" || to != "") {
				return fmt.Errorf("--date and --from/--to are mutually exclusive")
			}
			if (from == "") != (to == "") {
				return fmt.Errorf("--from and --to must be given together")
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
			p, err := a.newPipeline(cmd.Context())
			if err != nil {
				return err
			}

			if from != "" {
				fromDay, err := parseDate(from)
				if err != nil {
					return err
				}
				toDay, err := parseDate(to)
				if err != nil {
					return err
				}
				if toDay.Before(fromDay) {
					return fmt.Errorf("--to is before --from")
				}
				for _, f := range facilities {
					if err := p.RunRange(cmd.Context(), f, fromDay, toDay); err != nil {
						return err
					}
				}
				return nil
			}

			day, err := parseDate(date)
			if err != nil {
				return err
			}
			return p.RunFacilities(cmd.Context(), facilities, day)
		},
	}
	cmd.Flags().StringVar(&facility, "facility", "", "facility code (default: all configured)")
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&from, "from", "", "backfill range start YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "backfill range end YYYY-MM-DD, inclusive")
	return cmd
}
