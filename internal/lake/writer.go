package lake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// OpenEngine opens the embedded DuckDB engine used for parquet writes and
// the SQL read surface. An empty DSN keeps it fully in-memory; all durable
// state lives in the parquet files themselves.
func OpenEngine() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

// WriterConfig controls the partitioned lake writer.
type WriterConfig struct {
	RootDir string
	// AttachProductFilter writes a bloom sidecar over product_id next to
	// every parquet file. Purely a read-time pruning aid.
	AttachProductFilter bool
	FilterFPRate        float64
}

// Writer persists batches of logical-schema rows into the partitioned
// parquet lake. Writes for a given (dataset, facility, day) partition are
// idempotent: the same target file is overwritten, never appended.
type Writer struct {
	db     *sql.DB
	cfg    WriterConfig
	logger *slog.Logger
}

// NewWriter creates a lake writer on the given DuckDB handle.
func NewWriter(db *sql.DB, cfg WriterConfig, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{db: db, cfg: cfg, logger: logger}
}

// dayPartitionPath builds the hive-style partition path for one day:
// <root>/<dataset>/facility_code=<FAC>/year=<Y>/month=<M>/<dataset>_data_<YYYYMMDD>.parquet
func dayPartitionPath(root, dataset, facility string, day time.Time) string {
	return filepath.Join(root, dataset,
		"facility_code="+facility,
		fmt.Sprintf("year=%d", day.Year()),
		fmt.Sprintf("month=%d", int(day.Month())),
		fmt.Sprintf("%s_data_%s.parquet", dataset, day.Format("20060102")),
	)
}

// bucketPartitionPath builds the bucketed history path:
// <root>/history/facility_code=<FAC>/model_code=<M>/bucket_id=<BB>/<YYYY-MM-DD>_<i>.parquet
func bucketPartitionPath(root, facility, modelCode, bucketID string, day time.Time, idx int) string {
	return filepath.Join(root, DatasetHistory,
		"facility_code="+facility,
		"model_code="+sanitizeSegment(modelCode),
		"bucket_id="+bucketID,
		fmt.Sprintf("%s_%d.parquet", day.Format("2006-01-02"), idx),
	)
}

// WriteDay persists one day's batch for a dataset under its facility/year/
// month partition. An empty batch is a logged no-op. Returns the file path
// written, or "" for the no-op case.
func (w *Writer) WriteDay(ctx context.Context, schema DatasetSchema, facility string, day time.Time, rows []Row) (string, error) {
	if err := ValidateFacility(facility); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		w.logger.Warn("no data to save",
			"dataset", schema.Dataset, "facility", facility, "date", day.Format("2006-01-02"))
		return "", nil
	}

	path := dayPartitionPath(w.cfg.RootDir, schema.Dataset, facility, day)
	if err := w.writeParquet(ctx, schema, path, rows); err != nil {
		return "", err
	}

	w.logger.Info("saved partition",
		"dataset", schema.Dataset, "facility", facility,
		"rows", len(rows), "path", path)
	return path, nil
}

// WriteHistoryBucketed persists history rows under the bucketed layout,
// one file per (model_code, bucket) group. Rows without a usable product
// identifier land in the reserved "00" bucket.
func (w *Writer) WriteHistoryBucketed(ctx context.Context, facility string, day time.Time, rows []Row) ([]string, error) {
	if err := ValidateFacility(facility); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		w.logger.Warn("no data to save",
			"dataset", DatasetHistory, "facility", facility, "date", day.Format("2006-01-02"))
		return nil, nil
	}

	schema := HistorySchema()

	type groupKey struct {
		model  string
		bucket string
	}
	groups := make(map[groupKey][]Row)
	for _, r := range rows {
		model, _ := r["model_code"].(string)
		product, _ := r["product_id"].(string)
		k := groupKey{model: model, bucket: BucketID(product)}
		groups[k] = append(groups[k], r)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].model != keys[j].model {
			return keys[i].model < keys[j].model
		}
		return keys[i].bucket < keys[j].bucket
	})

	var paths []string
	for _, k := range keys {
		path := bucketPartitionPath(w.cfg.RootDir, facility, k.model, k.bucket, day, 0)
		if err := w.writeParquet(ctx, schema, path, groups[k]); err != nil {
			return paths, fmt.Errorf("bucket %s/%s: %w", k.model, k.bucket, err)
		}
		paths = append(paths, path)
	}

	w.logger.Info("saved bucketed history",
		"facility", facility, "rows", len(rows), "files", len(paths))
	return paths, nil
}

// writeParquet stages rows in a temp table and copies them out as one
// parquet file, replacing any previous file at the same path. The staging
// table is session-scoped, so the whole sequence is pinned to a single
// pooled connection.
func (w *Writer) writeParquet(ctx context.Context, schema DatasetSchema, path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}

	conn, err := w.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	staging := "staging_" + schema.Dataset

	cols := make([]string, len(schema.Fields))
	defs := make([]string, len(schema.Fields))
	holes := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = f.Logical
		holes[i] = "?"
		switch f.Type {
		case TypeTimestamp:
			defs[i] = f.Logical + " TIMESTAMP"
		default:
			defs[i] = f.Logical + " VARCHAR"
		}
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE %s (%s)", staging, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	defer conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+staging)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		staging, strings.Join(cols, ", "), strings.Join(holes, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare staging insert: %w", err)
	}

	var productIDs []string
	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok {
				args[i] = v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("stage row: %w", err)
		}
		if id, ok := row["product_id"].(string); ok && id != "" {
			productIDs = append(productIDs, id)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging insert: %w", err)
	}

	// Sorting by product id keeps zone maps effective for point lookups.
	copySQL := fmt.Sprintf(
		"COPY (SELECT * FROM %s ORDER BY product_id) TO '%s' (FORMAT PARQUET)",
		staging, strings.ReplaceAll(path, "'", "''"))
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("copy to parquet: %w", err)
	}

	if w.cfg.AttachProductFilter {
		if err := writeProductFilter(path, productIDs, w.cfg.FilterFPRate); err != nil {
			// The filter is an optimization; a failed sidecar must not fail
			// the write.
			w.logger.Warn("failed to attach product filter", "path", path, "error", err)
		}
	}
	return nil
}
