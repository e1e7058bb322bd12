package lake

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayPartitionPath(t *testing.T) {
	day := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	got := dayPartitionPath("/data/lake", DatasetInspection, "P9T", day)
	want := filepath.Join("/data/lake", "inspection",
		"facility_code=P9T", "year=2026", "month=3",
		"inspection_data_20260307.parquet")
	assert.Equal(t, want, got)
}

func TestDayPartitionPathIsStablePerDay(t *testing.T) {
	morning := time.Date(2026, time.March, 7, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.March, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t,
		dayPartitionPath("/lake", DatasetHistory, "P9T", morning),
		dayPartitionPath("/lake", DatasetHistory, "P9T", evening))
}

func TestBucketPartitionPath(t *testing.T) {
	day := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	got := bucketPartitionPath("/lake", "P9T", "M123", "42", day, 0)
	want := filepath.Join("/lake", "history",
		"facility_code=P9T", "model_code=M123", "bucket_id=42",
		"2026-03-07_0.parquet")
	assert.Equal(t, want, got)
}

func TestBucketPartitionPathSanitizesModelCode(t *testing.T) {
	day := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)
	got := bucketPartitionPath("/lake", "P9T", "", "00", day, 0)
	assert.Contains(t, got, "model_code=UNKNOWN")

	got = bucketPartitionPath("/lake", "P9T", "M1/..=x", "00", day, 0)
	assert.NotContains(t, filepath.Base(filepath.Dir(got)), "/")
	assert.NotContains(t, got, "..")
}

func TestValidateFacility(t *testing.T) {
	assert.NoError(t, ValidateFacility("P9T"))
	assert.NoError(t, ValidateFacility("FAB_2"))
	for _, bad := range []string{"", "p9t", "P9T'; --", "A B", "../etc"} {
		assert.Errorf(t, ValidateFacility(bad), "facility %q", bad)
	}
}
