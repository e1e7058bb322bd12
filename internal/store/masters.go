package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LakeSource supplies the distinct dimension values observed in one day's
// lake partitions. Satisfied by lake.Reader; declared here so the catalog
// updater does not depend on the lake package.
type LakeSource interface {
	DistinctModelCodes(ctx context.Context, facility string, day time.Time) ([]string, error)
	DistinctDefectNames(ctx context.Context, facility string, day time.Time) ([]string, error)
}

// CatalogUpdater refreshes the three master catalogs for one facility and
// target date. All three operations are idempotent: running twice for the
// same date leaves the same key sets, only updated_at advances.
type CatalogUpdater struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCatalogUpdater creates a catalog updater on the statistics store.
func NewCatalogUpdater(db *gorm.DB, logger *slog.Logger) *CatalogUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogUpdater{db: db, logger: logger}
}

// UpdateAll runs the three catalog refreshes. Each is independently
// transactional; a failure is logged and does not abort the others. The
// joined error of whatever failed is returned.
func (u *CatalogUpdater) UpdateAll(ctx context.Context, src LakeSource, facility string, day time.Time) error {
	var errs []error

	if n, err := u.UpdateModelMaster(ctx, src, facility, day); err != nil {
		u.logger.Error("model master update failed", "facility", facility, "error", err)
		errs = append(errs, fmt.Errorf("model master: %w", err))
	} else {
		u.logger.Info("model master updated", "facility", facility, "models", n)
	}

	if n, err := u.UpdateDefectMaster(ctx, src, facility, day); err != nil {
		u.logger.Error("defect master update failed", "facility", facility, "error", err)
		errs = append(errs, fmt.Errorf("defect master: %w", err))
	} else {
		u.logger.Info("defect master updated", "facility", facility, "defects", n)
	}

	if n, err := u.UpdateModelLayouts(ctx); err != nil {
		u.logger.Error("model layout update failed", "error", err)
		errs = append(errs, fmt.Errorf("model layouts: %w", err))
	} else {
		u.logger.Info("model layout master updated", "models", n)
	}

	return errors.Join(errs...)
}

// UpdateModelMaster upserts every model code observed in the day's history
// facts. Returns the number of codes observed.
func (u *CatalogUpdater) UpdateModelMaster(ctx context.Context, src LakeSource, facility string, day time.Time) (int, error) {
	codes, err := src.DistinctModelCodes(ctx, facility, day)
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]ModelMaster, len(codes))
	for i, c := range codes {
		rows[i] = ModelMaster{ModelCode: c, UpdatedAt: now}
	}

	err = u.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_code"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert model master: %w", err)
	}
	return len(rows), nil
}

// UpdateDefectMaster upserts every non-null defect name observed in the
// day's inspection facts.
func (u *CatalogUpdater) UpdateDefectMaster(ctx context.Context, src LakeSource, facility string, day time.Time) (int, error) {
	names, err := src.DistinctDefectNames(ctx, facility, day)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]DefectMaster, len(names))
	for i, n := range names {
		rows[i] = DefectMaster{DefectName: n, UpdatedAt: now}
	}

	err = u.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "defect_name"}},
		DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert defect master: %w", err)
	}
	return len(rows), nil
}

// UpdateModelLayouts joins the part-number reference table to the panel
// layout table and upserts one reference layout per model. All part
// numbers under a model are assumed to share one layout; the candidate
// with the lexically smallest part number wins, so repeated runs stay
// deterministic even if that assumption is violated.
func (u *CatalogUpdater) UpdateModelLayouts(ctx context.Context) (int, error) {
	db := u.db.WithContext(ctx)

	var parts []PartNumber
	if err := db.Order("part_no ASC").Find(&parts).Error; err != nil {
		return 0, fmt.Errorf("load part numbers: %w", err)
	}
	var layouts []PanelLayout
	if err := db.Find(&layouts).Error; err != nil {
		return 0, fmt.Errorf("load panel layouts: %w", err)
	}

	layoutByPart := make(map[string][]string, len(layouts))
	for _, l := range layouts {
		if len(l.RefPanels) > 0 {
			layoutByPart[l.PartNo] = l.RefPanels
		}
	}

	chosen := make(map[string][]string)
	for _, p := range parts {
		if _, ok := chosen[p.ModelCode]; ok {
			continue
		}
		if ref, ok := layoutByPart[p.PartNo]; ok {
			chosen[p.ModelCode] = ref
		}
	}
	if len(chosen) == 0 {
		return 0, nil
	}

	models := make([]string, 0, len(chosen))
	for m := range chosen {
		models = append(models, m)
	}
	sort.Strings(models)

	now := time.Now()
	rows := make([]ModelLayoutMaster, len(models))
	for i, m := range models {
		rows[i] = ModelLayoutMaster{ModelCode: m, RefPanels: chosen[m], UpdatedAt: now}
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"ref_panels", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert model layouts: %w", err)
	}
	return len(rows), nil
}
