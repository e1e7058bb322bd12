package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoStore implements Store over DynamoDB full-table scans with filter
// expressions. Scans are paginated to completion; callers get one slice.
type DynamoStore struct {
	client *dynamodb.Client
	logger *slog.Logger
}

// NewDynamoStore builds a store from the ambient AWS configuration chain
// (environment, shared config, instance role).
func NewDynamoStore(ctx context.Context, region string, logger *slog.Logger) (*DynamoStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), logger: logger}, nil
}

// NewDynamoStoreFromClient wraps an existing client, used by tests.
func NewDynamoStoreFromClient(client *dynamodb.Client, logger *slog.Logger) *DynamoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoStore{client: client, logger: logger}
}

// Scan executes the query and returns every matching item as a flat
// string map. Non-string attributes are skipped.
func (s *DynamoStore) Scan(ctx context.Context, q Query) ([]map[string]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{TableName: &q.Table}
	if len(q.Conditions) > 0 || len(q.Projection) > 0 {
		expr, err := buildExpression(q)
		if err != nil {
			return nil, err
		}
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
		input.FilterExpression = expr.Filter()
		input.ProjectionExpression = expr.Projection()
	}

	var items []map[string]string
	pages := 0
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s page %d: %w", q.Table, pages+1, err)
		}
		pages++

		var raw []map[string]any
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &raw); err != nil {
			return nil, fmt.Errorf("decode %s items: %w", q.Table, err)
		}
		for _, item := range raw {
			row := make(map[string]string, len(item))
			for k, v := range item {
				if str, ok := v.(string); ok {
					row[k] = str
				}
			}
			items = append(items, row)
		}
	}

	s.logger.Debug("remote scan finished", "table", q.Table, "pages", pages, "items", len(items))
	return items, nil
}

// buildExpression translates a Query into a DynamoDB expression. Conditions
// are ANDed in declaration order.
func buildExpression(q Query) (expression.Expression, error) {
	builder := expression.NewBuilder()

	var filter expression.ConditionBuilder
	for i, c := range q.Conditions {
		var cond expression.ConditionBuilder
		switch c.Op {
		case OpEqual:
			cond = expression.Name(c.Attribute).Equal(expression.Value(c.Value))
		case OpGreaterThan:
			cond = expression.Name(c.Attribute).GreaterThan(expression.Value(c.Value))
		case OpLessThan:
			cond = expression.Name(c.Attribute).LessThan(expression.Value(c.Value))
		case OpBeginsWith:
			cond = expression.Name(c.Attribute).BeginsWith(c.Value)
		default:
			return expression.Expression{}, fmt.Errorf("unsupported condition operator %q", c.Op)
		}
		if i == 0 {
			filter = cond
		} else {
			filter = filter.And(cond)
		}
	}
	if len(q.Conditions) > 0 {
		builder = builder.WithFilter(filter)
	}

	if len(q.Projection) > 0 {
		names := make([]expression.NameBuilder, len(q.Projection))
		for i, p := range q.Projection {
			names[i] = expression.Name(p)
		}
		builder = builder.WithProjection(expression.NamesList(names[0], names[1:]...))
	}

	expr, err := builder.Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build scan expression for %s: %w", q.Table, err)
	}
	return expr, nil
}
