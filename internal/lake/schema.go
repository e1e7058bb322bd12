package lake

import (
	"fmt"
)

// FieldType is the storage type of a logical field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeTimestamp
)

// Field declares one logical column of a dataset. Physical lists the
// column names it may carry in the source system, in preference order;
// ingestion versions drifted over time (e.g. product_id vs. glass_id), so
// the mapping is resolved once per batch against the columns actually
// present, never per row.
type Field struct {
	Logical  string
	Physical []string
	Type     FieldType
	Required bool
}

// DatasetSchema is the versioned logical schema of one lake dataset.
type DatasetSchema struct {
	Dataset    string
	Version    int
	TimeColumn string // logical name of the per-day filter column
	Fields     []Field
}

// ColumnMap maps logical field names to the physical column resolved for
// this batch. Absent optional fields map to "".
type ColumnMap map[string]string

// Resolve maps each logical field onto the first of its physical
// candidates present in available. A required field with no match is an
// error; optional fields degrade to the zero value downstream.
func (s DatasetSchema) Resolve(available []string) (ColumnMap, error) {
	present := make(map[string]bool, len(available))
	for _, c := range available {
		present[c] = true
	}

	cm := make(ColumnMap, len(s.Fields))
	for _, f := range s.Fields {
		cm[f.Logical] = ""
		for _, p := range f.Physical {
			if present[p] {
				cm[f.Logical] = p
				break
			}
		}
		if cm[f.Logical] == "" && f.Required {
			return nil, fmt.Errorf("dataset %s v%d: no column for required field %s (tried %v)",
				s.Dataset, s.Version, f.Logical, f.Physical)
		}
	}
	return cm, nil
}

// Field returns the declared field with the given logical name.
func (s DatasetSchema) Field(logical string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Logical == logical {
			return f, true
		}
	}
	return Field{}, false
}

// HistorySchema describes the device movement/history dataset.
func HistorySchema() DatasetSchema {
	return DatasetSchema{
		Dataset:    DatasetHistory,
		Version:    2,
		TimeColumn: "move_in_ymdhms",
		Fields: []Field{
			{Logical: "product_id", Physical: []string{"product_id", "glass_id"}, Type: TypeString, Required: true},
			{Logical: "model_code", Physical: []string{"model_code"}, Type: TypeString},
			{Logical: "lot_id", Physical: []string{"lot_id"}, Type: TypeString},
			{Logical: "move_in_ymdhms", Physical: []string{"move_in_ymdhms", "time_ymdhms", "timekey_ymdhms"}, Type: TypeTimestamp, Required: true},
			{Logical: "process_code", Physical: []string{"process_code"}, Type: TypeString},
			{Logical: "eqp_line_id", Physical: []string{"eqp_line_id", "equipment_line_id"}, Type: TypeString},
			{Logical: "eqp_machine_id", Physical: []string{"eqp_machine_id", "equipment_machine_id"}, Type: TypeString},
			{Logical: "eqp_path_id", Physical: []string{"eqp_path_id", "equipment_path_id"}, Type: TypeString},
		},
	}
}

// InspectionSchema describes the optical-inspection defect dataset.
// defect_name and panel_addr are derived during ingestion (from the raw
// term name and panel id), so they only ever carry their logical names.
func InspectionSchema() DatasetSchema {
	return DatasetSchema{
		Dataset:    DatasetInspection,
		Version:    2,
		TimeColumn: "inspection_end_ymdhms",
		Fields: []Field{
			{Logical: "product_id", Physical: []string{"product_id", "glass_id"}, Type: TypeString, Required: true},
			{Logical: "defect_name", Physical: []string{"defect_name"}, Type: TypeString},
			{Logical: "panel_addr", Physical: []string{"panel_addr"}, Type: TypeString},
			{Logical: "inspection_end_ymdhms", Physical: []string{"inspection_end_ymdhms"}, Type: TypeTimestamp, Required: true},
		},
	}
}
