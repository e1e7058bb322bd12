package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mgcha85/lgd-liteStat/internal/ingest"
	"github.com/mgcha85/lgd-liteStat/internal/store"
)

type fakeIngestor struct {
	calls []time.Time
	err   error
}

func (f *fakeIngestor) IngestDay(_ context.Context, _ string, day time.Time) (ingest.Result, error) {
	f.calls = append(f.calls, day)
	return ingest.Result{HistoryRows: 10}, f.err
}

type fakeCatalogs struct {
	calls int
	err   error
}

func (f *fakeCatalogs) UpdateAll(context.Context, store.LakeSource, string, time.Time) error {
	f.calls++
	return f.err
}

type fakeAggregator struct {
	calls []time.Time
	err   error
}

func (f *fakeAggregator) AggregateDay(_ context.Context, _ string, day time.Time) (store.RunCounts, error) {
	f.calls = append(f.calls, day)
	return store.RunCounts{StatRows: 5}, f.err
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db, slog.Default()))
	return db
}

var testDay = time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

func TestRunDayRecordsRun(t *testing.T) {
	db := setupDB(t)
	stats := store.NewStatsStore(db, nil)
	ing := &fakeIngestor{}
	cat := &fakeCatalogs{}
	agg := &fakeAggregator{}

	p := New(ing, cat, agg, nil, stats, nil)
	require.NoError(t, p.RunDay(context.Background(), "P7", testDay))

	assert.Len(t, ing.calls, 1)
	assert.Equal(t, 1, cat.calls)
	assert.Len(t, agg.calls, 1)

	runs, err := stats.RunsFor(context.Background(), "P7", testDay)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStateSucceeded, runs[0].State)
	assert.Equal(t, 5, runs[0].StatRows)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRunDayIngestFailureSkipsAggregation(t *testing.T) {
	db := setupDB(t)
	stats := store.NewStatsStore(db, nil)
	ing := &fakeIngestor{err: fmt.Errorf("remote unavailable")}
	cat := &fakeCatalogs{}
	agg := &fakeAggregator{}

	p := New(ing, cat, agg, nil, stats, nil)
	err := p.RunDay(context.Background(), "P7", testDay)
	require.Error(t, err)

	assert.Zero(t, cat.calls, "catalog refresh never runs on ingest failure")
	assert.Empty(t, agg.calls, "aggregation never runs on ingest failure")

	runs, err := stats.RunsFor(context.Background(), "P7", testDay)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStateFailed, runs[0].State)
	assert.Contains(t, runs[0].LastError, "remote unavailable")
}

func TestRunDayCatalogFailureStillAggregates(t *testing.T) {
	db := setupDB(t)
	stats := store.NewStatsStore(db, nil)
	ing := &fakeIngestor{}
	cat := &fakeCatalogs{err: fmt.Errorf("layout table locked")}
	agg := &fakeAggregator{}

	p := New(ing, cat, agg, nil, stats, nil)
	err := p.RunDay(context.Background(), "P7", testDay)
	require.Error(t, err)
	assert.Len(t, agg.calls, 1, "aggregation proceeds past catalog failure")
}

func TestRunRangeIsolatesFailedDays(t *testing.T) {
	db := setupDB(t)
	stats := store.NewStatsStore(db, nil)
	ing := &fakeIngestor{}
	agg := &fakeAggregator{err: fmt.Errorf("boom")}

	p := New(ing, &fakeCatalogs{}, agg, nil, stats, nil)
	from := testDay
	to := testDay.AddDate(0, 0, 2)

	err := p.RunRange(context.Background(), "P7", from, to)
	require.Error(t, err)
	assert.Len(t, ing.calls, 3, "all three days attempted despite failures")
	assert.Equal(t, []time.Time{from, from.AddDate(0, 0, 1), to}, ing.calls)
}

func TestRunFacilities(t *testing.T) {
	db := setupDB(t)
	stats := store.NewStatsStore(db, nil)
	ing := &fakeIngestor{}

	p := New(ing, &fakeCatalogs{}, &fakeAggregator{}, nil, stats, nil)
	require.NoError(t, p.RunFacilities(context.Background(), []string{"P7", "P8"}, testDay))
	assert.Len(t, ing.calls, 2)
}

func TestNextTrigger(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 22, 1, 30, 0, 0, loc)

	next := nextTrigger(now, "02:00")
	assert.Equal(t, time.Date(2026, 8, 22, 2, 0, 0, 0, loc), next, "later today")

	next = nextTrigger(now, "01:00")
	assert.Equal(t, time.Date(2026, 8, 23, 1, 0, 0, 0, loc), next, "already passed, tomorrow")

	next = nextTrigger(time.Date(2026, 8, 22, 2, 0, 0, 0, loc), "02:00")
	assert.Equal(t, time.Date(2026, 8, 23, 2, 0, 0, 0, loc), next, "exact boundary rolls over")
}
