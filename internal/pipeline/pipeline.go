// Package pipeline chains ingestion, catalog refresh and aggregation into
// the daily batch run, and schedules it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mgcha85/lgd-liteStat/internal/ingest"
	"github.com/mgcha85/lgd-liteStat/internal/store"
)

// Ingestor lands one day of remote facts in the lake. Satisfied by
// ingest.Ingestor.
type Ingestor interface {
	IngestDay(ctx context.Context, facility string, day time.Time) (ingest.Result, error)
}

// CatalogRefresher refreshes the master catalogs from the day's lake
// partitions. Satisfied by store.CatalogUpdater.
type CatalogRefresher interface {
	UpdateAll(ctx context.Context, src store.LakeSource, facility string, day time.Time) error
}

// Aggregator runs the merge for one facility and day. Satisfied by
// engine.Engine.
type Aggregator interface {
	AggregateDay(ctx context.Context, facility string, day time.Time) (store.RunCounts, error)
}

// Pipeline runs the three batch stages in order. Every invocation is
// recorded in the aggregation run log, success or failure.
type Pipeline struct {
	ingestor   Ingestor
	catalogs   CatalogRefresher
	aggregator Aggregator
	lakeSource store.LakeSource
	stats      *store.StatsStore
	logger     *slog.Logger
}

// New assembles a pipeline.
func New(
	ingestor Ingestor,
	catalogs CatalogRefresher,
	aggregator Aggregator,
	lakeSource store.LakeSource,
	stats *store.StatsStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ingestor:   ingestor,
		catalogs:   catalogs,
		aggregator: aggregator,
		lakeSource: lakeSource,
		stats:      stats,
		logger:     logger,
	}
}

// RunDay executes ingest, catalog refresh and aggregation for one facility
// and target date. Ingestion failure aborts the run; a catalog failure is
// recorded but does not block aggregation, which only needs the layout
// tables that already exist.
func (p *Pipeline) RunDay(ctx context.Context, facility string, day time.Time) error {
	run, err := p.stats.StartRun(ctx, facility, day)
	if err != nil {
		return err
	}
	p.logger.Info("batch run started",
		"run", run.ID, "facility", facility, "date", day.Format("2006-01-02"))

	var errs []error
	var counts store.RunCounts

	if _, err := p.ingestor.IngestDay(ctx, facility, day); err != nil {
		errs = append(errs, fmt.Errorf("ingest: %w", err))
	} else {
		if err := p.catalogs.UpdateAll(ctx, p.lakeSource, facility, day); err != nil {
			errs = append(errs, fmt.Errorf("catalogs: %w", err))
		}
		counts, err = p.aggregator.AggregateDay(ctx, facility, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("aggregate: %w", err))
		}
	}

	runErr := errors.Join(errs...)
	if err := p.stats.FinishRun(ctx, run, counts, runErr); err != nil {
		errs = append(errs, err)
		runErr = errors.Join(errs...)
	}

	if runErr != nil {
		p.logger.Error("batch run failed", "run", run.ID, "facility", facility, "error", runErr)
		return runErr
	}
	p.logger.Info("batch run finished", "run", run.ID, "facility", facility,
		"statRows", counts.StatRows)
	return nil
}

// RunRange executes RunDay for every date in [from, to]. Days are isolated:
// one failed day is logged and the range continues. The joined error of
// all failed days is returned.
func (p *Pipeline) RunRange(ctx context.Context, facility string, from, to time.Time) error {
	var errs []error
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.RunDay(ctx, facility, day); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", day.Format("2006-01-02"), err))
		}
	}
	return errors.Join(errs...)
}

// RunFacilities executes RunDay for one date across all facilities,
// isolating failures the same way RunRange does.
func (p *Pipeline) RunFacilities(ctx context.Context, facilities []string, day time.Time) error {
	var errs []error
	for _, facility := range facilities {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.RunDay(ctx, facility, day); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", facility, err))
		}
	}
	return errors.Join(errs...)
}
