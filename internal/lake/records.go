// Package lake persists ingested facts into a hive-partitioned parquet
// lake and serves parameterized per-day reads back out of it. DuckDB is
// the embedded engine for both directions.
package lake

import "time"

// Dataset names as they appear in partition paths.
const (
	DatasetHistory    = "history"
	DatasetInspection = "inspection"
)

// HistoryRecord is one product movement event. Immutable once ingested.
type HistoryRecord struct {
	ProductID          string
	ModelCode          string
	LotID              string
	MoveInTime         time.Time
	FacilityCode       string
	ProcessCode        string
	EquipmentLineID    string
	EquipmentMachineID string
	EquipmentPathID    string
}

// InspectionRecord is one optical-inspection defect event. DefectName may
// be empty when the source term could not be parsed; such rows are kept in
// the lake but excluded from aggregation.
type InspectionRecord struct {
	ProductID         string
	DefectName        string
	PanelAddr         string
	InspectionEndTime time.Time
	FacilityCode      string
}

// Row is a logical-schema row: keys are logical field names from the
// dataset schema, values are strings or time.Time.
type Row map[string]any
