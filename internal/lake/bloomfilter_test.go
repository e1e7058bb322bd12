package lake

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductFilterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	parquet := filepath.Join(dir, "history_data_20260101.parquet")
	require.NoError(t, os.WriteFile(parquet, []byte("stub"), 0o644))

	ids := []string{"G001", "G002", "G003"}
	require.NoError(t, writeProductFilter(parquet, ids, 0.01))

	for _, id := range ids {
		assert.True(t, mayContain(parquet, id))
	}
	// A bloom filter can false-positive but never false-negative; pick an
	// id far from the inserted set and accept either answer without a
	// crash, then assert the definite-positive path above held.
	_ = mayContain(parquet, "definitely-not-ingested-zzz")
}

func TestMayContainWithoutSidecarIsTrue(t *testing.T) {
	dir := t.TempDir()
	parquet := filepath.Join(dir, "no_sidecar.parquet")
	assert.True(t, mayContain(parquet, "anything"))
}

func TestWriteProductFilterEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	parquet := filepath.Join(dir, "empty.parquet")
	require.NoError(t, writeProductFilter(parquet, nil, 0.01))
	_, err := os.Stat(filterPath(parquet))
	assert.True(t, os.IsNotExist(err))
}
