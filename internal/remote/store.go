// Package remote defines the contract against the facility's wide-column
// store and its DynamoDB implementation. Ingestion is the only consumer;
// everything downstream reads from the local lake.
package remote

import (
	"context"
	"fmt"
)

// Operator is a comparison in a scan condition.
type Operator string

const (
	OpEqual       Operator = "eq"
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpBeginsWith  Operator = "begins_with"
)

// Condition is one attribute filter. All values travel as strings, matching
// the wide-column source where every cell is stored as text.
type Condition struct {
	Attribute string
	Op        Operator
	Value     string
}

// Query describes one full-table scan: the physical table, the filter
// conditions (ANDed together) and the attributes to project. An empty
// projection returns every attribute.
type Query struct {
	Table      string
	Conditions []Condition
	Projection []string
}

// Validate rejects queries that cannot be executed.
func (q Query) Validate() error {
	if q.Table == "" {
		return fmt.Errorf("remote query requires a table name")
	}
	for _, c := range q.Conditions {
		switch c.Op {
		case OpEqual, OpGreaterThan, OpLessThan, OpBeginsWith:
		default:
			return fmt.Errorf("unsupported condition operator %q on %s", c.Op, c.Attribute)
		}
		if c.Attribute == "" {
			return fmt.Errorf("condition with operator %q has no attribute", c.Op)
		}
	}
	return nil
}

// Store scans the remote wide-column store. Implementations must paginate
// internally and return the complete result set.
type Store interface {
	Scan(ctx context.Context, q Query) ([]map[string]string, error)
}
