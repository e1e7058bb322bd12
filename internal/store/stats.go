package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsStore upserts aggregation results and resolves reference layouts.
type StatsStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStatsStore creates a stats store on the gorm database.
func NewStatsStore(db *gorm.DB, logger *slog.Logger) *StatsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsStore{db: db, logger: logger}
}

// LayoutsByModel returns the reference panel layout for each of the given
// model codes that has one. Models without a layout are simply absent.
func (s *StatsStore) LayoutsByModel(ctx context.Context, modelCodes []string) (map[string][]string, error) {
	if len(modelCodes) == 0 {
		return map[string][]string{}, nil
	}

	var rows []ModelLayoutMaster
	if err := s.db.WithContext(ctx).Where("model_code IN ?", modelCodes).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load model layouts: %w", err)
	}

	out := make(map[string][]string, len(rows))
	for _, r := range rows {
		if len(r.RefPanels) > 0 {
			out[r.ModelCode] = r.RefPanels
		}
	}
	return out, nil
}

// UpsertGlassStats merges aggregate rows into glass_stats. On a
// (product_id, defect_name) conflict the descriptive fields are
// overwritten with the incoming values, total_defects is ADDED to the
// existing count and panel_map/panel_addrs are CONCATENATED onto the
// existing lists. Re-running the same day therefore accumulates; callers
// own rerun hygiene (see aggregation_runs).
//
// Rows must arrive deterministically ordered (product_id, defect_name) so
// that last-write within a batch is stable.
func (s *StatsStore) UpsertGlassStats(ctx context.Context, rows []GlassStat) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			row := rows[i]
			row.CreatedAt = now

			var existing GlassStat
			err := tx.Where("product_id = ? AND defect_name = ?", row.ProductID, row.DefectName).
				First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("insert glass stat %s/%s: %w", row.ProductID, row.DefectName, err)
				}
			case err != nil:
				return fmt.Errorf("lookup glass stat %s/%s: %w", row.ProductID, row.DefectName, err)
			default:
				row.CreatedAt = existing.CreatedAt
				row.TotalDefects += existing.TotalDefects
				row.PanelMap = append(existing.PanelMap, row.PanelMap...)
				row.PanelAddrs = append(existing.PanelAddrs, row.PanelAddrs...)
				if err := tx.Save(&row).Error; err != nil {
					return fmt.Errorf("merge glass stat %s/%s: %w", row.ProductID, row.DefectName, err)
				}
			}
		}
		return nil
	})
}

// UpsertGlassDefectStats writes the coarse per-product defect counts with
// plain overwrite-on-conflict semantics.
func (s *StatsStore) UpsertGlassDefectStats(ctx context.Context, rows []GlassDefectStat) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		rows[i].UpdatedAt = now
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "defect_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"defect_count", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert glass defect stats: %w", err)
	}
	return nil
}

// UpsertModelDefectGrids writes the per-day spatial grids. Keyed by target
// date, overwritten on conflict: re-running a day replaces its grids.
func (s *StatsStore) UpsertModelDefectGrids(ctx context.Context, rows []ModelDefectGrid) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		rows[i].UpdatedAt = now
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "facility_code"}, {Name: "target_date"},
			{Name: "model_code"}, {Name: "defect_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"grid", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert model defect grids: %w", err)
	}
	return nil
}
