package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{
			name:  "plain table scan",
			query: Query{Table: "glass_history"},
		},
		{
			name: "all operators",
			query: Query{
				Table: "glass_history",
				Conditions: []Condition{
					{Attribute: "facility_code", Op: OpEqual, Value: "P7"},
					{Attribute: "move_in_ymdhms", Op: OpGreaterThan, Value: "20260822000000"},
					{Attribute: "move_in_ymdhms", Op: OpLessThan, Value: "20260823000000"},
					{Attribute: "product_id", Op: OpBeginsWith, Value: "G"},
				},
			},
		},
		{
			name:    "missing table",
			query:   Query{Conditions: []Condition{{Attribute: "a", Op: OpEqual, Value: "1"}}},
			wantErr: true,
		},
		{
			name:    "unknown operator",
			query:   Query{Table: "t", Conditions: []Condition{{Attribute: "a", Op: "contains", Value: "1"}}},
			wantErr: true,
		},
		{
			name:    "empty attribute",
			query:   Query{Table: "t", Conditions: []Condition{{Op: OpEqual, Value: "1"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildExpression(t *testing.T) {
	q := Query{
		Table: "defect_inspection",
		Conditions: []Condition{
			{Attribute: "facility_code", Op: OpEqual, Value: "P7"},
			{Attribute: "inspection_end_ymdhms", Op: OpGreaterThan, Value: "20260822000000"},
		},
		Projection: []string{"product_id", "defect_term", "panel_id"},
	}

	expr, err := buildExpression(q)
	require.NoError(t, err)

	require.NotNil(t, expr.Filter())
	require.NotNil(t, expr.Projection())

	names := expr.Names()
	got := make(map[string]bool, len(names))
	for _, n := range names {
		got[n] = true
	}
	for _, want := range []string{"facility_code", "inspection_end_ymdhms", "product_id", "defect_term", "panel_id"} {
		assert.True(t, got[want], "expression should reference %s", want)
	}
	assert.Len(t, expr.Values(), 2)
}

func TestBuildExpressionConditionsOnly(t *testing.T) {
	q := Query{
		Table:      "glass_history",
		Conditions: []Condition{{Attribute: "lot_id", Op: OpBeginsWith, Value: "LOT"}},
	}

	expr, err := buildExpression(q)
	require.NoError(t, err)
	assert.NotNil(t, expr.Filter())
	assert.Nil(t, expr.Projection())
}
