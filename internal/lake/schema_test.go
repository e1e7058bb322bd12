package lake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersPrimaryColumn(t *testing.T) {
	cm, err := HistorySchema().Resolve([]string{
		"product_id", "glass_id", "model_code", "lot_id", "move_in_ymdhms",
	})
	require.NoError(t, err)
	assert.Equal(t, "product_id", cm["product_id"])
	assert.Equal(t, "move_in_ymdhms", cm["move_in_ymdhms"])
}

func TestResolveFallsBackToAlternate(t *testing.T) {
	cm, err := HistorySchema().Resolve([]string{
		"glass_id", "model_code", "timekey_ymdhms",
	})
	require.NoError(t, err)
	assert.Equal(t, "glass_id", cm["product_id"])
	assert.Equal(t, "timekey_ymdhms", cm["move_in_ymdhms"])
}

func TestResolveMissingOptionalIsEmpty(t *testing.T) {
	cm, err := InspectionSchema().Resolve([]string{
		"product_id", "inspection_end_ymdhms",
	})
	require.NoError(t, err)
	assert.Equal(t, "", cm["defect_name"])
	assert.Equal(t, "", cm["panel_addr"])
}

func TestResolveMissingRequiredFails(t *testing.T) {
	_, err := HistorySchema().Resolve([]string{"model_code", "lot_id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product_id")
}
