package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunCounts summarizes one aggregation run for the run log.
type RunCounts struct {
	HistoryRows    int
	InspectionRows int
	StatRows       int
	NoDefectRows   int
	ExcludedAddrs  int
}

// StartRun records the beginning of an aggregation run for a facility and
// target date. Multiple rows per (facility, date) are expected: each rerun
// gets its own entry so accumulation stays auditable.
func (s *StatsStore) StartRun(ctx context.Context, facility string, day time.Time) (*AggregationRun, error) {
	run := &AggregationRun{
		ID:           uuid.New().String(),
		FacilityCode: facility,
		TargetDate:   day.Format("2006-01-02"),
		State:        RunStateRunning,
		StartedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("record aggregation run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run succeeded or failed with its counts.
func (s *StatsStore) FinishRun(ctx context.Context, run *AggregationRun, counts RunCounts, runErr error) error {
	now := time.Now()
	updates := map[string]any{
		"state":           RunStateSucceeded,
		"finished_at":     now,
		"history_rows":    counts.HistoryRows,
		"inspection_rows": counts.InspectionRows,
		"stat_rows":       counts.StatRows,
		"no_defect_rows":  counts.NoDefectRows,
		"excluded_addrs":  counts.ExcludedAddrs,
	}
	if runErr != nil {
		updates["state"] = RunStateFailed
		updates["last_error"] = runErr.Error()
	}

	err := s.db.WithContext(ctx).Model(&AggregationRun{}).
		Where("id = ?", run.ID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("finish aggregation run: %w", err)
	}
	return nil
}

// RunsFor lists the run log entries for a facility and target date, most
// recent first.
func (s *StatsStore) RunsFor(ctx context.Context, facility string, day time.Time) ([]AggregationRun, error) {
	var runs []AggregationRun
	err := s.db.WithContext(ctx).
		Where("facility_code = ? AND target_date = ?", facility, day.Format("2006-01-02")).
		Order("started_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list aggregation runs: %w", err)
	}
	return runs, nil
}
