// Package engine joins history facts with grouped inspection facts per
// product and defect, builds panel defect maps, and merges the results
// into the statistics store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/mgcha85/lgd-liteStat/internal/lake"
	"github.com/mgcha85/lgd-liteStat/internal/panel"
	"github.com/mgcha85/lgd-liteStat/internal/store"
)

// Source supplies one day's already-materialized lake facts. Satisfied by
// lake.Reader.
type Source interface {
	HistoryForDay(ctx context.Context, facility string, day time.Time) ([]lake.HistoryRecord, error)
	InspectionForDay(ctx context.Context, facility string, day time.Time) ([]lake.InspectionRecord, error)
}

// Options tune the sentinel values used in the output rows.
type Options struct {
	// NoDefectName keys the sentinel row for products with zero defects.
	NoDefectName string
	// UnknownModelCode replaces an empty model code on output rows.
	UnknownModelCode string
}

func (o *Options) defaults() {
	if o.NoDefectName == "" {
		o.NoDefectName = "NO_DEFECT"
	}
	if o.UnknownModelCode == "" {
		o.UnknownModelCode = "UNKNOWN"
	}
}

// Engine is the aggregation merge engine. It runs after ingestion on local
// data only; there are no remote calls inside.
type Engine struct {
	source Source
	stats  *store.StatsStore
	opts   Options
	logger *slog.Logger
}

// New creates an engine over a lake source and the statistics store.
func New(source Source, stats *store.StatsStore, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	opts.defaults()
	return &Engine{source: source, stats: stats, opts: opts, logger: logger}
}

// defectKey identifies one inspection group.
type defectKey struct {
	productID  string
	defectName string
}

// gridKey identifies one per-day spatial grid.
type gridKey struct {
	modelCode  string
	defectName string
}

// defectGroup tallies one product/defect pair: occurrence count per
// distinct panel address (in first-observed order), the raw address list,
// and the latest inspection time.
type defectGroup struct {
	counts         map[string]int
	addrOrder      []string
	total          int
	lastInspection time.Time
}

// AggregateDay executes the full merge for one facility and target date:
// group inspection facts, resolve reference layouts, left-join onto
// history, and upsert glass_stats (accumulating), glass_defect_stats
// (overwriting) and model_defect_grids (per-day idempotent).
func (e *Engine) AggregateDay(ctx context.Context, facility string, day time.Time) (store.RunCounts, error) {
	var counts store.RunCounts

	inspection, err := e.source.InspectionForDay(ctx, facility, day)
	if err != nil {
		return counts, fmt.Errorf("read inspection facts: %w", err)
	}
	counts.InspectionRows = len(inspection)

	groups := e.groupInspection(inspection)

	history, err := e.source.HistoryForDay(ctx, facility, day)
	if err != nil {
		return counts, fmt.Errorf("read history facts: %w", err)
	}
	counts.HistoryRows = len(history)

	products := dedupeHistory(history)
	if len(products) == 0 {
		e.logger.Info("no history facts for day, nothing to aggregate",
			"facility", facility, "date", day.Format("2006-01-02"))
		return counts, nil
	}

	models := mapset.NewSet[string]()
	for _, h := range products {
		if h.ModelCode != "" {
			models.Add(h.ModelCode)
		}
	}
	layouts, err := e.stats.LayoutsByModel(ctx, models.ToSlice())
	if err != nil {
		return counts, fmt.Errorf("resolve layouts: %w", err)
	}

	statRows, defectRows, gridRows, runCounts := e.buildRows(facility, day, products, groups, layouts)
	runCounts.HistoryRows = counts.HistoryRows
	runCounts.InspectionRows = counts.InspectionRows

	if err := e.stats.UpsertGlassStats(ctx, statRows); err != nil {
		return runCounts, fmt.Errorf("upsert glass stats: %w", err)
	}
	if err := e.stats.UpsertGlassDefectStats(ctx, defectRows); err != nil {
		return runCounts, fmt.Errorf("upsert glass defect stats: %w", err)
	}
	if err := e.stats.UpsertModelDefectGrids(ctx, gridRows); err != nil {
		return runCounts, fmt.Errorf("upsert model defect grids: %w", err)
	}

	e.logger.Info("aggregation completed",
		"facility", facility,
		"date", day.Format("2006-01-02"),
		"historyRows", runCounts.HistoryRows,
		"inspectionRows", runCounts.InspectionRows,
		"statRows", runCounts.StatRows,
		"noDefectRows", runCounts.NoDefectRows,
		"excludedAddrs", runCounts.ExcludedAddrs)
	return runCounts, nil
}

// groupInspection groups inspection facts by (product, defect), dropping
// rows with an unparsed defect name or no panel address at all.
// Unparseable-but-present addresses stay in the tallies; only the grid
// aggregate excludes them.
func (e *Engine) groupInspection(records []lake.InspectionRecord) map[defectKey]*defectGroup {
	groups := make(map[defectKey]*defectGroup)
	for _, rec := range records {
		if rec.DefectName == "" || rec.PanelAddr == "" {
			continue
		}
		k := defectKey{productID: rec.ProductID, defectName: rec.DefectName}
		g, ok := groups[k]
		if !ok {
			g = &defectGroup{counts: make(map[string]int)}
			groups[k] = g
		}
		if _, seen := g.counts[rec.PanelAddr]; !seen {
			g.addrOrder = append(g.addrOrder, rec.PanelAddr)
		}
		g.counts[rec.PanelAddr]++
		g.total++
		if rec.InspectionEndTime.After(g.lastInspection) {
			g.lastInspection = rec.InspectionEndTime
		}
	}
	return groups
}

// dedupeHistory keeps one movement row per product, the one with the
// latest move-in timestamp.
func dedupeHistory(records []lake.HistoryRecord) map[string]lake.HistoryRecord {
	latest := make(map[string]lake.HistoryRecord, len(records))
	for _, rec := range records {
		if rec.ProductID == "" {
			continue
		}
		if prev, ok := latest[rec.ProductID]; !ok || rec.MoveInTime.After(prev.MoveInTime) {
			latest[rec.ProductID] = rec
		}
	}
	return latest
}

// buildRows left-joins the defect groups onto history. Every history
// product yields at least one row; products with no defects get the
// sentinel row. Output is sorted by (product_id, defect_name) so upsert
// last-write stays deterministic.
func (e *Engine) buildRows(
	facility string,
	day time.Time,
	products map[string]lake.HistoryRecord,
	groups map[defectKey]*defectGroup,
	layouts map[string][]string,
) ([]store.GlassStat, []store.GlassDefectStat, []store.ModelDefectGrid, store.RunCounts) {
	var counts store.RunCounts

	defectsByProduct := make(map[string][]string)
	for k := range groups {
		defectsByProduct[k.productID] = append(defectsByProduct[k.productID], k.defectName)
	}

	productIDs := make([]string, 0, len(products))
	for id := range products {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	grids := make(map[gridKey][]int)
	var statRows []store.GlassStat
	var defectRows []store.GlassDefectStat

	for _, productID := range productIDs {
		hist := products[productID]
		modelCode := hist.ModelCode
		if modelCode == "" {
			modelCode = e.opts.UnknownModelCode
		}
		workDate := time.Date(
			hist.MoveInTime.Year(), hist.MoveInTime.Month(), hist.MoveInTime.Day(),
			0, 0, 0, 0, hist.MoveInTime.Location())

		base := store.GlassStat{
			ProductID:          productID,
			ModelCode:          modelCode,
			LotID:              hist.LotID,
			WorkDate:           workDate,
			EquipmentLineID:    hist.EquipmentLineID,
			EquipmentMachineID: hist.EquipmentMachineID,
			EquipmentPathID:    hist.EquipmentPathID,
		}

		defectNames := defectsByProduct[productID]
		if len(defectNames) == 0 {
			row := base
			row.DefectName = e.opts.NoDefectName
			row.PanelMap = []int{}
			row.PanelAddrs = []string{}
			statRows = append(statRows, row)
			counts.NoDefectRows++
			continue
		}
		sort.Strings(defectNames)

		refPanels := layouts[hist.ModelCode]
		for _, defectName := range defectNames {
			g := groups[defectKey{productID: productID, defectName: defectName}]

			row := base
			row.DefectName = defectName
			row.TotalDefects = g.total
			last := g.lastInspection
			row.InspectionTime = &last

			if len(refPanels) > 0 {
				// Layout mode: one intensity per reference panel, in
				// ref_panels order, zero when unobserved.
				row.PanelMap = make([]int, len(refPanels))
				row.PanelAddrs = append([]string(nil), refPanels...)
				for i, addr := range refPanels {
					row.PanelMap[i] = g.counts[addr]
				}
			} else {
				// Raw fallback mode: parallel observed lists.
				row.PanelMap = make([]int, len(g.addrOrder))
				row.PanelAddrs = append([]string(nil), g.addrOrder...)
				for i, addr := range g.addrOrder {
					row.PanelMap[i] = g.counts[addr]
				}
			}
			statRows = append(statRows, row)

			defectRows = append(defectRows, store.GlassDefectStat{
				ProductID:   productID,
				DefectName:  defectName,
				DefectCount: g.total,
			})

			// Spatial grid per (model, defect): encoded cell positions
			// summed across products. Unparseable addresses are excluded
			// from the grid only.
			gk := gridKey{modelCode: modelCode, defectName: defectName}
			grid, ok := grids[gk]
			if !ok {
				grid = make([]int, panel.GridCells)
				grids[gk] = grid
			}
			for addr, n := range g.counts {
				res := panel.Encode(addr)
				if res.Valid() {
					grid[res.Index-1] += n
				} else {
					counts.ExcludedAddrs += n
				}
			}
		}
	}
	counts.StatRows = len(statRows)

	gridRows := make([]store.ModelDefectGrid, 0, len(grids))
	for gk, grid := range grids {
		gridRows = append(gridRows, store.ModelDefectGrid{
			FacilityCode: facility,
			TargetDate:   day.Format("2006-01-02"),
			ModelCode:    gk.modelCode,
			DefectName:   gk.defectName,
			Grid:         grid,
		})
	}
	sort.Slice(gridRows, func(i, j int) bool {
		if gridRows[i].ModelCode != gridRows[j].ModelCode {
			return gridRows[i].ModelCode < gridRows[j].ModelCode
		}
		return gridRows[i].DefectName < gridRows[j].DefectName
	})

	return statRows, defectRows, gridRows, counts
}
