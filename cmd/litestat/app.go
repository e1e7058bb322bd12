package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/mgcha85/lgd-liteStat/internal/config"
	"github.com/mgcha85/lgd-liteStat/internal/engine"
	"github.com/mgcha85/lgd-liteStat/internal/ingest"
	"github.com/mgcha85/lgd-liteStat/internal/lake"
	"github.com/mgcha85/lgd-liteStat/internal/pipeline"
	"github.com/mgcha85/lgd-liteStat/internal/remote"
	"github.com/mgcha85/lgd-liteStat/internal/store"
)

// app wires the pipeline components from configuration. Every subcommand
// builds one and closes it when done.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *gorm.DB
	engineDB *sql.DB

	reader   *lake.Reader
	writer   *lake.Writer
	stats    *store.StatsStore
	catalogs *store.CatalogUpdater
	engine   *engine.Engine
}

// newApp loads configuration, opens the stores and applies pending schema
// migrations.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db, logger); err != nil {
		return nil, err
	}

	engineDB, err := lake.OpenEngine()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		engineDB: engineDB,
		reader:   lake.NewReader(engineDB, cfg.Lake.RootDir, logger),
		writer: lake.NewWriter(engineDB, lake.WriterConfig{
			RootDir:             cfg.Lake.RootDir,
			AttachProductFilter: cfg.Lake.ProductFilter,
			FilterFPRate:        cfg.Lake.FilterFPRate,
		}, logger),
		stats:    store.NewStatsStore(db, logger),
		catalogs: store.NewCatalogUpdater(db, logger),
	}
	a.engine = engine.New(a.reader, a.stats, engine.Options{}, logger)
	return a, nil
}

// newIngestor additionally connects to the remote store; only the
// subcommands that actually ingest pay for the AWS config chain.
func (a *app) newIngestor(ctx context.Context) (*ingest.Ingestor, error) {
	remoteStore, err := remote.NewDynamoStore(ctx, a.cfg.Remote.Region, a.logger)
	if err != nil {
		return nil, err
	}
	ing, err := ingest.New(remoteStore, a.writer, ingest.Tables{
		History:    a.cfg.Remote.HistoryTable,
		Inspection: a.cfg.Remote.InspectionTable,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	ing.BucketHistory = a.cfg.Lake.BucketHistory
	return ing, nil
}

// newPipeline assembles the full three-stage pipeline.
func (a *app) newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	ing, err := a.newIngestor(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(ing, a.catalogs, a.engine, a.reader, a.stats, a.logger), nil
}

func (a *app) close() {
	if a.engineDB != nil {
		a.engineDB.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// resolveFacilities returns the single facility from the flag, or all
// configured facilities when the flag is empty.
func (a *app) resolveFacilities(flag string) ([]string, error) {
	if flag == "" {
		return a.cfg.Facilities, nil
	}
	for _, f := range a.cfg.Facilities {
		if f == flag {
			return []string{flag}, nil
		}
	}
	return nil, fmt.Errorf("facility %q is not configured (have %v)", flag, a.cfg.Facilities)
}
