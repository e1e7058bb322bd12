// Package store holds the statistics and master-catalog tables on gorm,
// plus the ordered schema migrations and upsert operations over them.
package store

import (
	"time"

	"gorm.io/datatypes"
)

// ModelMaster catalogs every model code ever observed in history facts.
// Rows are never deleted; updated_at advances on every observation.
type ModelMaster struct {
	ModelCode string    `gorm:"primaryKey;column:model_code;type:varchar(64)"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (ModelMaster) TableName() string { return "model_master" }

// DefectMaster catalogs every distinct defect name observed in inspection
// facts. Same refresh rule as ModelMaster.
type DefectMaster struct {
	DefectName string    `gorm:"primaryKey;column:defect_name;type:varchar(128)"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (DefectMaster) TableName() string { return "defect_master" }

// ModelLayoutMaster links a model code to its reference panel layout, the
// ordered list of panel addresses on that model's glass. Derived from the
// part-number and panel-layout reference tables on the assumption that all
// part numbers under one model share an identical layout.
type ModelLayoutMaster struct {
	ModelCode string                      `gorm:"primaryKey;column:model_code;type:varchar(64)"`
	RefPanels datatypes.JSONSlice[string] `gorm:"column:ref_panels"`
	UpdatedAt time.Time                   `gorm:"column:updated_at;not null"`
}

func (ModelLayoutMaster) TableName() string { return "model_layout_master" }

// PartNumber maps a part number to its model code. Seeded externally.
type PartNumber struct {
	PartNo    string `gorm:"primaryKey;column:part_no;type:varchar(64)"`
	ModelCode string `gorm:"column:model_code;index;not null"`
}

func (PartNumber) TableName() string { return "part_numbers" }

// PanelLayout maps a part number to its reference panel list. Seeded
// externally.
type PanelLayout struct {
	PartNo    string                      `gorm:"primaryKey;column:part_no;type:varchar(64)"`
	RefPanels datatypes.JSONSlice[string] `gorm:"column:ref_panels"`
}

func (PanelLayout) TableName() string { return "panel_layouts" }

// GlassStat is one aggregate row per product per distinct defect type.
// Defect-free products carry a single sentinel defect name with zero
// counts. On conflict, descriptive fields are overwritten while
// total_defects accumulates and the panel lists concatenate; see
// StatsStore.UpsertGlassStats.
//
// panel_map is parallel to the model's reference panel list when a layout
// is known (fixed length), and parallel to panel_addrs otherwise (raw
// observed mode). Consumers must check which mode produced a row.
type GlassStat struct {
	ProductID          string                      `gorm:"primaryKey;column:product_id;type:varchar(64)"`
	DefectName         string                      `gorm:"primaryKey;column:defect_name;type:varchar(128)"`
	ModelCode          string                      `gorm:"column:model_code;index"`
	LotID              string                      `gorm:"column:lot_id;index"`
	WorkDate           time.Time                   `gorm:"column:work_date;index"`
	InspectionTime     *time.Time                  `gorm:"column:inspection_ymdhms"`
	EquipmentLineID    string                      `gorm:"column:eqp_line_id"`
	EquipmentMachineID string                      `gorm:"column:eqp_machine_id"`
	EquipmentPathID    string                      `gorm:"column:eqp_path_id"`
	TotalDefects       int                         `gorm:"column:total_defects;not null;default:0"`
	PanelMap           datatypes.JSONSlice[int]    `gorm:"column:panel_map"`
	PanelAddrs         datatypes.JSONSlice[string] `gorm:"column:panel_addrs"`
	CreatedAt          time.Time                   `gorm:"column:created_at"`
}

func (GlassStat) TableName() string { return "glass_stats" }

// GlassDefectStat is the coarser aggregate: a plain defect count per
// product/defect pair, overwritten on conflict.
type GlassDefectStat struct {
	ProductID   string    `gorm:"primaryKey;column:product_id;type:varchar(64)"`
	DefectName  string    `gorm:"primaryKey;column:defect_name;type:varchar(128)"`
	DefectCount int       `gorm:"column:defect_count;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (GlassDefectStat) TableName() string { return "glass_defect_stats" }

// ModelDefectGrid is the per-day spatial aggregate: defect intensity per
// cell of the fixed 26x10 grid, summed across all products of one model
// and defect type. Keyed by target date and overwritten on conflict, so
// re-running a day is idempotent for this table.
type ModelDefectGrid struct {
	FacilityCode string                   `gorm:"primaryKey;column:facility_code;type:varchar(16)"`
	TargetDate   string                   `gorm:"primaryKey;column:target_date;type:varchar(10)"`
	ModelCode    string                   `gorm:"primaryKey;column:model_code;type:varchar(64)"`
	DefectName   string                   `gorm:"primaryKey;column:defect_name;type:varchar(128)"`
	Grid         datatypes.JSONSlice[int] `gorm:"column:grid"`
	UpdatedAt    time.Time                `gorm:"column:updated_at"`
}

func (ModelDefectGrid) TableName() string { return "model_defect_grids" }

// RunState is the lifecycle state of one aggregation run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// AggregationRun logs every aggregation invocation per facility and target
// date. GlassStat accumulates across reruns, so the log is what makes a
// rerun visible.
type AggregationRun struct {
	ID             string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	FacilityCode   string     `gorm:"column:facility_code;index:idx_run_fac_date,priority:1;not null"`
	TargetDate     string     `gorm:"column:target_date;index:idx_run_fac_date,priority:2;not null"`
	State          RunState   `gorm:"column:state;not null;default:running"`
	StartedAt      time.Time  `gorm:"column:started_at;not null"`
	FinishedAt     *time.Time `gorm:"column:finished_at"`
	HistoryRows    int        `gorm:"column:history_rows"`
	InspectionRows int        `gorm:"column:inspection_rows"`
	StatRows       int        `gorm:"column:stat_rows"`
	NoDefectRows   int        `gorm:"column:no_defect_rows"`
	ExcludedAddrs  int        `gorm:"column:excluded_addrs"`
	LastError      string     `gorm:"column:last_error"`
}

func (AggregationRun) TableName() string { return "aggregation_runs" }

// SchemaMigration tracks which ordered migrations have been applied.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;column:version"`
	Name      string    `gorm:"column:name;not null"`
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
}

func (SchemaMigration) TableName() string { return "schema_migrations" }
