package store

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Migration is one step in the ordered schema migration list. Every step
// must be idempotent; versions are applied in ascending order exactly once
// and recorded in schema_migrations.
type Migration struct {
	Version int
	Name    string
	Run     func(tx *gorm.DB) error
}

// Migrations is the single ordered list of schema changes. New columns or
// tables get a new entry here rather than ad-hoc DDL at call sites.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "master catalogs and layout references",
			Run: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&ModelMaster{},
					&DefectMaster{},
					&ModelLayoutMaster{},
					&PartNumber{},
					&PanelLayout{},
				)
			},
		},
		{
			Version: 2,
			Name:    "glass statistics tables",
			Run: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&GlassStat{}, &GlassDefectStat{})
			},
		},
		{
			Version: 3,
			Name:    "model defect grids and aggregation run log",
			Run: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ModelDefectGrid{}, &AggregationRun{})
			},
		},
	}
}

// Migrate applies all pending migrations in order. Safe to call on every
// startup; already-applied versions are skipped.
func Migrate(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("prepare schema_migrations: %w", err)
	}

	for _, m := range Migrations() {
		var applied int64
		if err := db.Model(&SchemaMigration{}).Where("version = ?", m.Version).Count(&applied).Error; err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Run(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		logger.Info("applied migration", "version", m.Version, "name", m.Name)
	}
	return nil
}
