package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/relations"
	apperrors "inventory-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// nodeItem is the DynamoDB item for a node document.
type nodeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.Node
}

// identifierItem maps one identifier value to the node carrying it.
type identifierItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	NodeID     string `dynamodbav:"NodeID"`
}

// NodeStore implements ports.NodeStore on a single DynamoDB table.
type NodeStore struct {
	client    API
	tableName string
	indexName string
	now       func() time.Time
	logger    *zap.Logger
}

// NewNodeStore creates a node store. indexName is the GSI listing node
// documents in creation order.
func NewNodeStore(client API, tableName, indexName string, logger *zap.Logger) *NodeStore {
	return &NodeStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

func newNodeItem(node *entities.Node) nodeItem {
	return nodeItem{
		PK:         nodePK(node.ID),
		SK:         metadataSK,
		GSI1PK:     nodeIndexPK,
		GSI1SK:     fmt.Sprintf("%s#%s", node.CreatedAt.Format(time.RFC3339Nano), node.ID),
		EntityType: entityNode,
		Node:       *node,
	}
}

func unmarshalNode(item map[string]types.AttributeValue) (*entities.Node, error) {
	var ni nodeItem
	if err := attributevalue.UnmarshalMap(item, &ni); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	node := ni.Node
	return &node, nil
}

// GetByID retrieves a node by its id.
func (s *NodeStore) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(nodePK(id), metadataSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "get node")
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	node, err := unmarshalNode(result.Item)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get node", err)
	}
	return node, nil
}

// FindByIdentifier tries identifier as a node id first, then as one of a
// node's identifiers. When several nodes share an identifier the lowest id wins.
func (s *NodeStore) FindByIdentifier(ctx context.Context, identifier string) (*entities.Node, error) {
	node, err := s.GetByID(ctx, identifier)
	if err == nil || !apperrors.IsNotFound(err) {
		return node, err
	}

	keyCond := expression.Key("PK").Equal(expression.Value(identPK(identifier)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build identifier query").WithCause(err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, classify(err, "find node by identifier")
	}
	if len(result.Items) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", identifier))
	}

	var ref identifierItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &ref); err != nil {
		return nil, apperrors.NewDatabaseError("find node by identifier", err)
	}
	return s.GetByID(ctx, ref.NodeID)
}

// Query pages through the node index in creation order, filtering on the
// server side until the limit is reached.
func (s *NodeStore) Query(ctx context.Context, query ports.NodeQuery) ([]*entities.Node, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(nodeIndexPK)))

	var filter expression.ConditionBuilder
	hasFilter := false
	if query.Type != "" {
		filter = expression.Name("Type").Equal(expression.Value(string(query.Type)))
		hasFilter = true
	}
	if query.Tag != "" {
		tagCond := expression.Name("Tags").Contains(query.Tag)
		if hasFilter {
			filter = filter.And(tagCond)
		} else {
			filter = tagCond
		}
		hasFilter = true
	}
	if hasFilter {
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build node query").WithCause(err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})

	var nodes []*entities.Node
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "query nodes")
		}
		for _, item := range page.Items {
			node, err := unmarshalNode(item)
			if err != nil {
				return nil, apperrors.NewDatabaseError("query nodes", err)
			}
			nodes = append(nodes, node)
			if query.Limit > 0 && len(nodes) == query.Limit {
				return nodes, nil
			}
		}
	}
	return nodes, nil
}

// Create writes the node and its identifier items in one transaction.
func (s *NodeStore) Create(ctx context.Context, node *entities.Node) (*entities.Node, error) {
	stored := node.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	av, err := attributevalue.MarshalMap(newNodeItem(stored))
	if err != nil {
		return nil, apperrors.NewDatabaseError("create node", err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build create condition").WithCause(err)
	}

	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:                aws.String(s.tableName),
			Item:                     av,
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		},
	}}
	identPuts, err := s.identifierPuts(stored.ID, stored.Identifiers)
	if err != nil {
		return nil, err
	}
	items = append(items, identPuts...)

	if err := s.transact(ctx, "create node", items); err != nil {
		if cancelledBy(err, 0) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("node %s already exists", stored.ID))
		}
		return nil, err
	}

	s.logger.Debug("Node created in DynamoDB", zap.String("nodeID", stored.ID))
	return stored, nil
}

// UpdateByID sets the fields carried by update. Identifier changes rewrite
// the identifier items in the same transaction.
func (s *NodeStore) UpdateByID(ctx context.Context, id string, update ports.NodeUpdate) (*entities.Node, error) {
	if update.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	set := expression.Set(expression.Name("UpdatedAt"), expression.Value(s.now()))
	if update.Name != nil {
		set = set.Set(expression.Name("Name"), expression.Value(*update.Name))
	}
	if update.Type != nil {
		set = set.Set(expression.Name("Type"), expression.Value(string(*update.Type)))
	}
	if update.Tags != nil {
		set = set.Set(expression.Name("Tags"), expression.Value(*update.Tags))
	}
	if update.Identifiers != nil {
		set = set.Set(expression.Name("Identifiers"), expression.Value(*update.Identifiers))
	}
	if update.Relations != nil {
		set = set.Set(expression.Name("Relations"), expression.Value(*update.Relations))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build node update").WithCause(err)
	}

	if update.Identifiers != nil {
		return s.updateWithIdentifiers(ctx, id, *update.Identifiers, expr)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(nodePK(id), metadataSK),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
		}
		return nil, classify(err, "update node")
	}
	node, err := unmarshalNode(result.Attributes)
	if err != nil {
		return nil, apperrors.NewDatabaseError("update node", err)
	}
	return node, nil
}

func (s *NodeStore) updateWithIdentifiers(ctx context.Context, id string, identifiers []string, expr expression.Expression) (*entities.Node, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:                 aws.String(s.tableName),
			Key:                       key(nodePK(id), metadataSK),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}}

	added, removed := diffIdentifiers(current.Identifiers, identifiers)
	for _, value := range removed {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       key(identPK(value), identSK(id)),
			},
		})
	}
	puts, err := s.identifierPuts(id, added)
	if err != nil {
		return nil, err
	}
	items = append(items, puts...)

	if err := s.transact(ctx, "update node", items); err != nil {
		if cancelledBy(err, 0) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// RemoveListItemsByPath reads the node, locates the entry by relation type
// and writes the pull with a condition pinning the entry's type and size.
// A write that loses a race fails with a CONCURRENT_WRITE conflict.
func (s *NodeStore) RemoveListItemsByPath(ctx context.Context, id string, pull relations.PullInstruction) error {
	node, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var index int
	if pull.IsEntryPull() {
		index = node.RelationIndex(pull.RelationType)
	} else {
		index, err = relations.ResolvePullIndex(node, pull)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}
	if index < 0 {
		return nil
	}
	before := len(node.Relations[index].Targets)

	changed, err := relations.ApplyPull(node, pull)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if !changed {
		return nil
	}

	entryPath := fmt.Sprintf("Relations[%d]", index)
	cond := expression.Name(entryPath + ".RelationType").Equal(expression.Value(pull.RelationType)).
		And(expression.Name(entryPath + ".Targets").Size().Equal(expression.Value(before)))

	update := expression.Set(expression.Name("UpdatedAt"), expression.Value(s.now()))
	if pull.IsEntryPull() {
		update = update.Remove(expression.Name(entryPath))
	} else {
		update = update.Set(expression.Name(entryPath+".Targets"), expression.Value(node.Relations[index].Targets))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build relation pull").WithCause(err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       key(nodePK(id), metadataSK),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		s.logger.Warn("Relation pull failed",
			zap.String("nodeID", id),
			zap.String("path", pull.Path),
			zap.String("relationType", pull.RelationType),
			zap.Error(err),
		)
		return classify(err, fmt.Sprintf("pull %s from node %s", pull.Path, id))
	}
	return nil
}

// Destroy deletes the node document and its identifier items.
func (s *NodeStore) Destroy(ctx context.Context, id string) error {
	node, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build destroy condition").WithCause(err)
	}

	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:                aws.String(s.tableName),
			Key:                      key(nodePK(id), metadataSK),
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		},
	}}
	for _, value := range node.Identifiers {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       key(identPK(value), identSK(id)),
			},
		})
	}

	if err := s.transact(ctx, "destroy node", items); err != nil {
		if cancelledBy(err, 0) {
			return apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
		}
		return err
	}
	return nil
}

func (s *NodeStore) identifierPuts(nodeID string, identifiers []string) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(identifiers))
	seen := make(map[string]bool, len(identifiers))
	for _, value := range identifiers {
		if seen[value] {
			continue
		}
		seen[value] = true
		av, err := attributevalue.MarshalMap(identifierItem{
			PK:         identPK(value),
			SK:         identSK(nodeID),
			EntityType: entityIdent,
			NodeID:     nodeID,
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("marshal identifier", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(s.tableName), Item: av},
		})
	}
	return items, nil
}

func (s *NodeStore) transact(ctx context.Context, operation string, items []types.TransactWriteItem) error {
	if len(items) > maxTransactItems {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s touches %d items, at most %d allowed", operation, len(items), maxTransactItems))
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return classify(err, operation)
	}
	return nil
}

func diffIdentifiers(current, next []string) (added, removed []string) {
	have := make(map[string]bool, len(current))
	for _, v := range current {
		have[v] = true
	}
	want := make(map[string]bool, len(next))
	for _, v := range next {
		if !have[v] && !want[v] {
			added = append(added, v)
		}
		want[v] = true
	}
	for v := range have {
		if !want[v] {
			removed = append(removed, v)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
