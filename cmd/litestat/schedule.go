package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgcha85/lgd-liteStat/internal/pipeline"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline daily at the configured trigger time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			sched, err := pipeline.NewScheduler(p, a.cfg.Facilities, a.cfg.Schedule.At, a.logger)
			if err != nil {
				return err
			}

			err = sched.Run(ctx)
			if errors.Is(err, context.Canceled) {
				a.logger.Info("scheduler stopped")
				return nil
			}
			return err
		},
	}
}
