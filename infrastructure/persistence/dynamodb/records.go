package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"inventory-backend/domain/core/entities"
	apperrors "inventory-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// maxUnprocessedRounds bounds how often a batch resubmits unprocessed items.
const maxUnprocessedRounds = 5

type catalogItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.Catalog
}

type workItemItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.WorkItem
}

type lookupItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.Lookup
}

// RecordStore implements ports.NodeRecordStore in the node table.
type RecordStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewRecordStore creates a record store on tableName.
func NewRecordStore(client API, tableName string, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// PutCatalog stores a catalog under its node.
func (s *RecordStore) PutCatalog(ctx context.Context, catalog entities.Catalog) error {
	return s.put(ctx, "put catalog", catalogItem{
		PK:         nodePK(catalog.NodeID),
		SK:         catalogSK(catalog.ID),
		EntityType: entityCatalog,
		Catalog:    catalog,
	})
}

// PutWorkItem stores a poller work item under its node.
func (s *RecordStore) PutWorkItem(ctx context.Context, item entities.WorkItem) error {
	return s.put(ctx, "put work item", workItemItem{
		PK:         nodePK(item.NodeID),
		SK:         workItemSK(item.ID),
		EntityType: entityWork,
		WorkItem:   item,
	})
}

// PutLookup stores a lookup row and, when it names a node, the node's
// back-reference to it.
func (s *RecordStore) PutLookup(ctx context.Context, lookup entities.Lookup) error {
	row, err := attributevalue.MarshalMap(lookupItem{
		PK:         lookupPK(lookup.MACAddress),
		SK:         lookupSK,
		EntityType: entityLookup,
		Lookup:     lookup,
	})
	if err != nil {
		return apperrors.NewDatabaseError("put lookup", err)
	}

	items := []types.TransactWriteItem{{
		Put: &types.Put{TableName: aws.String(s.tableName), Item: row},
	}}
	if lookup.NodeID != "" {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      key(nodePK(lookup.NodeID), lookupRefSK(lookup.MACAddress)),
			},
		})
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return classify(err, "put lookup")
	}
	return nil
}

// DeleteCatalogs removes every catalog recorded for the node.
func (s *RecordStore) DeleteCatalogs(ctx context.Context, nodeID string) error {
	keys, err := s.keysWithPrefix(ctx, nodePK(nodeID), catalogSK(""))
	if err != nil {
		return err
	}
	return s.deleteKeys(ctx, "delete catalogs", keys)
}

// DeleteWorkItems removes the node's poller work items.
func (s *RecordStore) DeleteWorkItems(ctx context.Context, nodeID string) error {
	keys, err := s.keysWithPrefix(ctx, nodePK(nodeID), workItemSK(""))
	if err != nil {
		return err
	}
	return s.deleteKeys(ctx, "delete work items", keys)
}

// ClearLookups unsets NodeID on every lookup row that still points at the
// node, then drops the node's back-references. Rows re-pointed at another
// node in the meantime are left alone.
func (s *RecordStore) ClearLookups(ctx context.Context, nodeID string) error {
	refs, err := s.keysWithPrefix(ctx, nodePK(nodeID), lookupRefSK(""))
	if err != nil {
		return err
	}

	expr, err := expression.NewBuilder().
		WithUpdate(expression.Remove(expression.Name("NodeID"))).
		WithCondition(expression.Name("NodeID").Equal(expression.Value(nodeID))).
		Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build lookup update").WithCause(err)
	}

	for _, ref := range refs {
		var sk string
		if err := attributevalue.Unmarshal(ref["SK"], &sk); err != nil {
			return apperrors.NewDatabaseError("clear lookups", err)
		}
		mac := sk[len(lookupRefSK("")):]

		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       key(lookupPK(mac), lookupSK),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if !errors.As(err, &ccf) {
				return classify(err, "clear lookups")
			}
			s.logger.Debug("Lookup row no longer points at node",
				zap.String("nodeID", nodeID),
				zap.String("macAddress", mac),
			)
		}
	}

	return s.deleteKeys(ctx, "clear lookups", refs)
}

// Catalogs lists the catalogs recorded for the node.
func (s *RecordStore) Catalogs(ctx context.Context, nodeID string) ([]entities.Catalog, error) {
	items, err := s.queryPrefix(ctx, nodePK(nodeID), catalogSK(""), false)
	if err != nil {
		return nil, err
	}
	catalogs := make([]entities.Catalog, 0, len(items))
	for _, item := range items {
		var ci catalogItem
		if err := attributevalue.UnmarshalMap(item, &ci); err != nil {
			return nil, apperrors.NewDatabaseError("list catalogs", err)
		}
		catalogs = append(catalogs, ci.Catalog)
	}
	return catalogs, nil
}

func (s *RecordStore) put(ctx context.Context, operation string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError(operation, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return classify(err, operation)
	}
	return nil
}

func (s *RecordStore) keysWithPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	return s.queryPrefix(ctx, pk, skPrefix, true)
}

func (s *RecordStore) queryPrefix(ctx context.Context, pk, skPrefix string, keysOnly bool) ([]map[string]types.AttributeValue, error) {
	builder := expression.NewBuilder().WithKeyCondition(
		expression.Key("PK").Equal(expression.Value(pk)).
			And(expression.Key("SK").BeginsWith(skPrefix)))
	if keysOnly {
		builder = builder.WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK")))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build record query").WithCause(err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, fmt.Sprintf("query %s", skPrefix))
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// deleteKeys batch-deletes items, resubmitting unprocessed ones a bounded
// number of times.
func (s *RecordStore) deleteKeys(ctx context.Context, operation string, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(keys))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key(stringAttr(k, "PK"), stringAttr(k, "SK"))},
			})
		}

		pending := map[string][]types.WriteRequest{s.tableName: requests}
		for round := 0; len(pending[s.tableName]) > 0; round++ {
			if round == maxUnprocessedRounds {
				return apperrors.NewUnavailableError("dynamodb").
					WithDetail("operation", operation).
					WithDetail("unprocessed", len(pending[s.tableName]))
			}
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return classify(err, operation)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
