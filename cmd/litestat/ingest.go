package main

import (
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var facility, date string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull one day of remote facts into the parquet lake",
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
			ing, err := a.newIngestor(cmd.Context())
			if err != nil {
				return err
			}

			for _, f := range facilities {
				if _, err := ing.IngestDay(cmd.Context(), f, day); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&facility, "facility", "", "facility code (default: all configured)")
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default: yesterday)")
	return cmd
}
