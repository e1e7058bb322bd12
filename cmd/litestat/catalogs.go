package main

import (
	"github.com/spf13/cobra"
)

func newCatalogsCmd() *cobra.Command {
	var facility, date string

	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "Refresh the model, defect and layout master catalogs",
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
				if err := a.catalogs.UpdateAll(cmd.Context(), a.reader, f, day); err != nil {
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
