package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glassStat(productID, defect string, total int, addrs []string, counts []int) GlassStat {
	last := time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)
	return GlassStat{
		ProductID:      productID,
		DefectName:     defect,
		ModelCode:      "MDL-A",
		LotID:          "LOT01",
		WorkDate:       time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
		InspectionTime: &last,
		TotalDefects:   total,
		PanelMap:       counts,
		PanelAddrs:     addrs,
	}
}

func TestUpsertGlassStatsInsertsThenAccumulates(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()

	rows := []GlassStat{glassStat("G001", "TFT-OPEN", 3, []string{"A1", "B2"}, []int{2, 1})}
	require.NoError(t, s.UpsertGlassStats(ctx, rows))

	var got GlassStat
	require.NoError(t, db.First(&got, "product_id = ?", "G001").Error)
	assert.Equal(t, 3, got.TotalDefects)

	// Rerun with the same batch accumulates the count and concatenates
	// the panel lists.
	require.NoError(t, s.UpsertGlassStats(ctx, rows))
	require.NoError(t, db.First(&got, "product_id = ?", "G001").Error)
	assert.Equal(t, 6, got.TotalDefects)
	assert.Equal(t, []string{"A1", "B2", "A1", "B2"}, []string(got.PanelAddrs))
	assert.Equal(t, []int{2, 1, 2, 1}, []int(got.PanelMap))
}

func TestUpsertGlassStatsDistinctDefectsStaySeparate(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()

	require.NoError(t, s.UpsertGlassStats(ctx, []GlassStat{
		glassStat("G001", "TFT-OPEN", 1, []string{"A1"}, []int{1}),
		glassStat("G001", "CF-STAIN", 2, []string{"B2"}, []int{2}),
	}))

	var n int64
	require.NoError(t, db.Model(&GlassStat{}).Where("product_id = ?", "G001").Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestUpsertGlassStatsEmptyBatch(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	require.NoError(t, s.UpsertGlassStats(context.Background(), nil))
}

func TestUpsertGlassDefectStatsOverwrites(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()

	require.NoError(t, s.UpsertGlassDefectStats(ctx, []GlassDefectStat{
		{ProductID: "G001", DefectName: "TFT-OPEN", DefectCount: 3},
	}))
	require.NoError(t, s.UpsertGlassDefectStats(ctx, []GlassDefectStat{
		{ProductID: "G001", DefectName: "TFT-OPEN", DefectCount: 7},
	}))

	var got GlassDefectStat
	require.NoError(t, db.First(&got, "product_id = ?", "G001").Error)
	assert.Equal(t, 7, got.DefectCount, "overwrite, not accumulate")
}

func TestUpsertModelDefectGridsReplacesPerDay(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()

	grid := make([]int, 260)
	grid[10] = 5
	require.NoError(t, s.UpsertModelDefectGrids(ctx, []ModelDefectGrid{
		{FacilityCode: "P7", TargetDate: "2026-08-22", ModelCode: "MDL-A", DefectName: "TFT-OPEN", Grid: grid},
	}))

	replacement := make([]int, 260)
	replacement[10] = 9
	require.NoError(t, s.UpsertModelDefectGrids(ctx, []ModelDefectGrid{
		{FacilityCode: "P7", TargetDate: "2026-08-22", ModelCode: "MDL-A", DefectName: "TFT-OPEN", Grid: replacement},
	}))

	var rows []ModelDefectGrid
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 9, rows[0].Grid[10])

	// A different date is a separate row.
	require.NoError(t, s.UpsertModelDefectGrids(ctx, []ModelDefectGrid{
		{FacilityCode: "P7", TargetDate: "2026-08-23", ModelCode: "MDL-A", DefectName: "TFT-OPEN", Grid: grid},
	}))
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 2)
}

func TestLayoutsByModel(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()

	require.NoError(t, db.Create(&ModelLayoutMaster{
		ModelCode: "MDL-A",
		RefPanels: []string{"A1", "A2"},
		UpdatedAt: time.Now(),
	}).Error)

	layouts, err := s.LayoutsByModel(ctx, []string{"MDL-A", "MDL-MISSING"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"MDL-A": {"A1", "A2"}}, layouts)

	layouts, err = s.LayoutsByModel(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, layouts)
}

func TestRunLogLifecycle(t *testing.T) {
	db := setupDB(t)
	s := NewStatsStore(db, nil)
	ctx := context.Background()
	day := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	run, err := s.StartRun(ctx, "P7", day)
	require.NoError(t, err)
	assert.Equal(t, RunStateRunning, run.State)

	counts := RunCounts{HistoryRows: 100, InspectionRows: 40, StatRows: 110, NoDefectRows: 70, ExcludedAddrs: 2}
	require.NoError(t, s.FinishRun(ctx, run, counts, nil))

	runs, err := s.RunsFor(ctx, "P7", day)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStateSucceeded, runs[0].State)
	assert.Equal(t, 100, runs[0].HistoryRows)
	assert.Equal(t, 110, runs[0].StatRows)

	// A second run for the same day gets its own row.
	run2, err := s.StartRun(ctx, "P7", day)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, run2, RunCounts{}, assert.AnError))

	runs, err = s.RunsFor(ctx, "P7", day)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunStateFailed, runs[0].State)
	assert.Equal(t, assert.AnError.Error(), runs[0].LastError)
}
