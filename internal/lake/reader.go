package lake

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Reader is the SQL read surface over the partitioned lake. Day filters
// compare by calendar day on the dataset's timestamp column; facility
// codes select the hive partition directory and are validated, while date
// bounds are bound as SQL parameters.
type Reader struct {
	db     *sql.DB
	root   string
	logger *slog.Logger
}

// NewReader creates a lake reader on the given DuckDB handle.
func NewReader(db *sql.DB, rootDir string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{db: db, root: rootDir, logger: logger}
}

// facilityDir is the root of one facility's partitions for a dataset.
func (r *Reader) facilityDir(dataset, facility string) string {
	return filepath.Join(r.root, dataset, "facility_code="+facility)
}

// dayGlob matches the day layout only. The bucketed history files live
// under the same dataset root with different hive keys (model_code/
// bucket_id), so the day readers must not sweep them up.
func (r *Reader) dayGlob(dataset, facility string) string {
	return filepath.Join(r.facilityDir(dataset, facility), "year=*", "month=*", "*.parquet")
}

// readParquetExpr builds the FROM clause for one facility's day
// partitions. union_by_name tolerates column drift across older partitions.
func (r *Reader) readParquetExpr(dataset, facility string) string {
	glob := filepath.ToSlash(r.dayGlob(dataset, facility))
	return fmt.Sprintf(
		"read_parquet('%s', hive_partitioning=true, union_by_name=true)",
		strings.ReplaceAll(glob, "'", "''"))
}

// hasPartitions reports whether any day partitions exist for the facility.
// No matching files means an empty result, not an error.
func (r *Reader) hasPartitions(dataset, facility string) bool {
	matches, err := filepath.Glob(r.dayGlob(dataset, facility))
	return err == nil && len(matches) > 0
}

// HistoryForDay returns the history facts whose move-in timestamp falls on
// the given calendar day.
func (r *Reader) HistoryForDay(ctx context.Context, facility string, day time.Time) ([]HistoryRecord, error) {
	if err := ValidateFacility(facility); err != nil {
		return nil, err
	}
	if !r.hasPartitions(DatasetHistory, facility) {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT product_id, model_code, lot_id, move_in_ymdhms,
		       process_code, eqp_line_id, eqp_machine_id, eqp_path_id
		FROM %s
		WHERE strftime(move_in_ymdhms, '%%Y-%%m-%%d') = ?`,
		r.readParquetExpr(DatasetHistory, facility))

	rows, err := r.db.QueryContext(ctx, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var (
			rec                                    HistoryRecord
			model, lot, process, line, mach, route sql.NullString
			moveIn                                 sql.NullTime
		)
		if err := rows.Scan(&rec.ProductID, &model, &lot, &moveIn,
			&process, &line, &mach, &route); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.ModelCode = model.String
		rec.LotID = lot.String
		rec.MoveInTime = moveIn.Time
		rec.FacilityCode = facility
		rec.ProcessCode = process.String
		rec.EquipmentLineID = line.String
		rec.EquipmentMachineID = mach.String
		rec.EquipmentPathID = route.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InspectionForDay returns the inspection facts whose inspection-end
// timestamp falls on the given calendar day. Rows with an unparsed defect
// name are included; aggregation drops them.
func (r *Reader) InspectionForDay(ctx context.Context, facility string, day time.Time) ([]InspectionRecord, error) {
	if err := ValidateFacility(facility); err != nil {
		return nil, err
	}
	if !r.hasPartitions(DatasetInspection, facility) {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT product_id, defect_name, panel_addr, inspection_end_ymdhms
		FROM %s
		WHERE strftime(inspection_end_ymdhms, '%%Y-%%m-%%d') = ?`,
		r.readParquetExpr(DatasetInspection, facility))

	rows, err := r.db.QueryContext(ctx, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query inspection: %w", err)
	}
	defer rows.Close()

	var out []InspectionRecord
	for rows.Next() {
		var (
			rec          InspectionRecord
			defect, addr sql.NullString
			end          sql.NullTime
		)
		if err := rows.Scan(&rec.ProductID, &defect, &addr, &end); err != nil {
			return nil, fmt.Errorf("scan inspection row: %w", err)
		}
		rec.DefectName = defect.String
		rec.PanelAddr = addr.String
		rec.InspectionEndTime = end.Time
		rec.FacilityCode = facility
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DistinctModelCodes returns the distinct model codes observed in history
// facts for the facility and day.
func (r *Reader) DistinctModelCodes(ctx context.Context, facility string, day time.Time) ([]string, error) {
	return r.distinct(ctx, DatasetHistory, facility, day, "model_code", "move_in_ymdhms")
}

// DistinctDefectNames returns the distinct non-null defect names observed
// in inspection facts for the facility and day.
func (r *Reader) DistinctDefectNames(ctx context.Context, facility string, day time.Time) ([]string, error) {
	return r.distinct(ctx, DatasetInspection, facility, day, "defect_name", "inspection_end_ymdhms")
}

func (r *Reader) distinct(ctx context.Context, dataset, facility string, day time.Time, column, timeColumn string) ([]string, error) {
	if err := ValidateFacility(facility); err != nil {
		return nil, err
	}
	if !r.hasPartitions(dataset, facility) {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM %s
		WHERE strftime(%s, '%%Y-%%m-%%d') = ?
		  AND %s IS NOT NULL AND %s <> ''
		ORDER BY %s`,
		column, r.readParquetExpr(dataset, facility), timeColumn, column, column, column)

	rows, err := r.db.QueryContext(ctx, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query distinct %s: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ProductMayExist checks membership filter sidecars under a facility's
// history partitions. False means the product is definitely absent from
// every file that carries a filter; files without sidecars count as
// "maybe", so the answer is conservative.
func (r *Reader) ProductMayExist(facility, productID string) (bool, error) {
	if err := ValidateFacility(facility); err != nil {
		return false, err
	}
	dir := r.facilityDir(DatasetHistory, facility)
	if _, err := os.Stat(dir); err != nil {
		return false, nil
	}

	may := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".parquet") {
			return err
		}
		if mayContain(path, productID) {
			may = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("walk partitions: %w", err)
	}
	return may, nil
}
