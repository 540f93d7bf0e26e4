package dynamodb

import (
	"context"
	"time"

	"inventory-backend/application/ports"
	apperrors "inventory-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Workflow statuses that block node removal.
const (
	WorkflowPending = "pending"
	WorkflowRunning = "running"
)

// graphItem is a workflow graph instance as the orchestrator stores it.
type graphItem struct {
	GraphID   string    `dynamodbav:"GraphID"`
	Name      string    `dynamodbav:"Name"`
	Target    string    `dynamodbav:"Target"`
	Status    string    `dynamodbav:"Status"`
	StartedAt time.Time `dynamodbav:"StartedAt"`
}

// WorkflowGate reads the orchestrator's graph table through a GSI on Target.
type WorkflowGate struct {
	client    API
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewWorkflowGate creates a gate over tableName and its target index.
func NewWorkflowGate(client API, tableName, indexName string, logger *zap.Logger) *WorkflowGate {
	return &WorkflowGate{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// FindActiveGraphForTarget returns the first pending or running graph that
// targets nodeID, or nil.
func (g *WorkflowGate) FindActiveGraphForTarget(ctx context.Context, nodeID string) (*ports.ActiveGraph, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("Target").Equal(expression.Value(nodeID))).
		WithFilter(expression.Name("Status").In(
			expression.Value(WorkflowPending),
			expression.Value(WorkflowRunning),
		)).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build workflow query").WithCause(err)
	}

	paginator := dynamodb.NewQueryPaginator(g.client, &dynamodb.QueryInput{
		TableName:                 aws.String(g.tableName),
		IndexName:                 aws.String(g.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "find active workflow")
		}
		if len(page.Items) == 0 {
			continue
		}

		var item graphItem
		if err := attributevalue.UnmarshalMap(page.Items[0], &item); err != nil {
			return nil, apperrors.NewDatabaseError("find active workflow", err)
		}
		g.logger.Debug("Active workflow found",
			zap.String("nodeID", nodeID),
			zap.String("graphID", item.GraphID),
		)
		return &ports.ActiveGraph{
			ID:        item.GraphID,
			Name:      item.Name,
			Target:    item.Target,
			Status:    item.Status,
			StartedAt: item.StartedAt,
		}, nil
	}
	return nil, nil
}
