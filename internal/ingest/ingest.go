// Package ingest pulls one day's raw facts out of the remote wide-column
// store, adapts them onto the versioned dataset schemas and lands them in
// the parquet lake.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mgcha85/lgd-liteStat/internal/lake"
	"github.com/mgcha85/lgd-liteStat/internal/remote"
)

// Tables maps the two logical datasets onto their physical remote table
// names. Both are required; there are no defaults because table names
// differ per facility deployment.
type Tables struct {
	History    string
	Inspection string
}

// Validate rejects an incomplete mapping.
func (t Tables) Validate() error {
	if t.History == "" {
		return fmt.Errorf("remote history table name is required")
	}
	if t.Inspection == "" {
		return fmt.Errorf("remote inspection table name is required")
	}
	return nil
}

// Result summarizes one ingestion run.
type Result struct {
	HistoryRows    int
	InspectionRows int
	SkippedRows    int
	Paths          []string
}

// Ingestor runs the remote-to-lake step. It is the only component that
// talks to the remote store.
type Ingestor struct {
	remote remote.Store
	writer *lake.Writer
	tables Tables
	// BucketHistory additionally lands history under the bucketed
	// model/bucket layout used for point lookups.
	BucketHistory bool
	logger        *slog.Logger
}

// New creates an ingestor.
func New(store remote.Store, writer *lake.Writer, tables Tables, logger *slog.Logger) (*Ingestor, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{remote: store, writer: writer, tables: tables, logger: logger}, nil
}

// timeKey formats a timestamp the way the remote store keys time columns.
const timeKey = "20060102150405"

// dayPrefix is the time-key prefix shared by every timestamp of one
// calendar day. Selecting by prefix keeps midnight records in, where a
// strict range would drop them.
func dayPrefix(day time.Time) string {
	return day.Format("20060102")
}

// IngestDay pulls and lands both datasets for one facility and day. The
// two datasets are independent; a failure in one aborts the run so the
// day is never half-materialized silently.
func (ing *Ingestor) IngestDay(ctx context.Context, facility string, day time.Time) (Result, error) {
	var res Result
	if err := lake.ValidateFacility(facility); err != nil {
		return res, err
	}

	histRows, skipped, err := ing.fetchHistory(ctx, facility, day)
	if err != nil {
		return res, fmt.Errorf("ingest history: %w", err)
	}
	res.HistoryRows = len(histRows)
	res.SkippedRows += skipped

	path, err := ing.writer.WriteDay(ctx, lake.HistorySchema(), facility, day, histRows)
	if err != nil {
		return res, fmt.Errorf("land history: %w", err)
	}
	if path != "" {
		res.Paths = append(res.Paths, path)
	}
	if ing.BucketHistory && len(histRows) > 0 {
		paths, err := ing.writer.WriteHistoryBucketed(ctx, facility, day, histRows)
		if err != nil {
			return res, fmt.Errorf("land bucketed history: %w", err)
		}
		res.Paths = append(res.Paths, paths...)
	}

	inspRows, skipped, err := ing.fetchInspection(ctx, facility, day)
	if err != nil {
		return res, fmt.Errorf("ingest inspection: %w", err)
	}
	res.InspectionRows = len(inspRows)
	res.SkippedRows += skipped

	path, err = ing.writer.WriteDay(ctx, lake.InspectionSchema(), facility, day, inspRows)
	if err != nil {
		return res, fmt.Errorf("land inspection: %w", err)
	}
	if path != "" {
		res.Paths = append(res.Paths, path)
	}

	ing.logger.Info("ingestion finished",
		"facility", facility, "date", day.Format("2006-01-02"),
		"historyRows", res.HistoryRows, "inspectionRows", res.InspectionRows,
		"skippedRows", res.SkippedRows, "files", len(res.Paths))
	return res, nil
}

// fetchHistory scans the remote history table and adapts the items onto
// the history dataset schema.
func (ing *Ingestor) fetchHistory(ctx context.Context, facility string, day time.Time) ([]lake.Row, int, error) {
	schema := lake.HistorySchema()

	items, err := ing.remote.Scan(ctx, remote.Query{
		Table: ing.tables.History,
		Conditions: []remote.Condition{
			{Attribute: "facility_code", Op: remote.OpEqual, Value: facility},
			{Attribute: schema.TimeColumn, Op: remote.OpBeginsWith, Value: dayPrefix(day)},
		},
	})
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, nil
	}

	cm, err := schema.Resolve(columnsOf(items))
	if err != nil {
		return nil, 0, err
	}

	rows := make([]lake.Row, 0, len(items))
	skipped := 0
	for _, item := range items {
		row, ok := adaptRow(schema, cm, item)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		ing.logger.Warn("dropped malformed history items", "facility", facility, "count", skipped)
	}
	return rows, skipped, nil
}

// Physical column candidates for the raw inspection fields that only exist
// before derivation. Resolved per batch, like schema fields.
var (
	termColumns  = []string{"defect_term", "term_name"}
	panelColumns = []string{"panel_id"}
)

// fetchInspection scans the remote inspection table, derives defect_name
// and panel_addr, and adapts the items onto the inspection dataset schema.
// Items whose term cannot be parsed keep an empty defect_name; the merge
// engine excludes them later.
func (ing *Ingestor) fetchInspection(ctx context.Context, facility string, day time.Time) ([]lake.Row, int, error) {
	schema := lake.InspectionSchema()

	items, err := ing.remote.Scan(ctx, remote.Query{
		Table: ing.tables.Inspection,
		Conditions: []remote.Condition{
			{Attribute: "facility_code", Op: remote.OpEqual, Value: facility},
			{Attribute: schema.TimeColumn, Op: remote.OpBeginsWith, Value: dayPrefix(day)},
		},
	})
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, nil
	}

	available := columnsOf(items)
	cm, err := schema.Resolve(available)
	if err != nil {
		return nil, 0, err
	}
	termCol := pickColumn(available, termColumns)
	panelCol := pickColumn(available, panelColumns)

	rows := make([]lake.Row, 0, len(items))
	skipped := 0
	for _, item := range items {
		row, ok := adaptRow(schema, cm, item)
		if !ok {
			skipped++
			continue
		}
		productID, _ := row["product_id"].(string)
		if name, _ := row["defect_name"].(string); name == "" && termCol != "" {
			row["defect_name"] = DeriveDefectName(item[termCol])
		}
		if addr, _ := row["panel_addr"].(string); addr == "" && panelCol != "" {
			row["panel_addr"] = DerivePanelAddr(item[panelCol], productID)
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		ing.logger.Warn("dropped malformed inspection items", "facility", facility, "count", skipped)
	}
	return rows, skipped, nil
}

// adaptRow maps one remote item onto the dataset's logical fields. An item
// missing a required value or carrying an unparseable required timestamp
// is dropped.
func adaptRow(schema lake.DatasetSchema, cm lake.ColumnMap, item map[string]string) (lake.Row, bool) {
	row := make(lake.Row, len(schema.Fields))
	for _, f := range schema.Fields {
		phys := cm[f.Logical]
		raw := ""
		if phys != "" {
			raw = item[phys]
		}
		if raw == "" {
			if f.Required {
				return nil, false
			}
			if f.Type == lake.TypeTimestamp {
				continue
			}
			row[f.Logical] = ""
			continue
		}

		if f.Type == lake.TypeTimestamp {
			ts, ok := parseTimeKey(raw)
			if !ok {
				if f.Required {
					return nil, false
				}
				continue
			}
			row[f.Logical] = ts
			continue
		}
		row[f.Logical] = raw
	}
	return row, true
}

// parseTimeKey parses the remote store's time formats, newest first.
func parseTimeKey(s string) (time.Time, bool) {
	for _, layout := range []string{timeKey, "2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// DeriveDefectName extracts the canonical defect name from a raw term
// name of the form <stage>-<layer>-<seq>-<type>[-...]: the layer and type
// segments joined with a dash. Unparseable terms map to "".
func DeriveDefectName(term string) string {
	parts := strings.Split(term, "-")
	if len(parts) < 4 || parts[1] == "" || parts[3] == "" {
		return ""
	}
	return parts[1] + "-" + parts[3]
}

// DerivePanelAddr strips the product id prefix off a panel id, leaving
// the on-glass panel address. A panel id that does not carry the prefix
// is returned unchanged.
func DerivePanelAddr(panelID, productID string) string {
	if productID == "" {
		return panelID
	}
	return strings.TrimPrefix(panelID, productID)
}

// columnsOf returns the union of attribute names across all items. Scans
// project sparse items, so no single item is authoritative.
func columnsOf(items []map[string]string) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, item := range items {
		for k := range item {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// pickColumn returns the first candidate present in available, or "".
func pickColumn(available, candidates []string) string {
	present := make(map[string]bool, len(available))
	for _, c := range available {
		present[c] = true
	}
	for _, c := range candidates {
		if present[c] {
			return c
		}
	}
	return ""
}
