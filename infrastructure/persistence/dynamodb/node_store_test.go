package dynamodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/relations"
	apperrors "inventory-backend/pkg/errors"
	"inventory-backend/tests/fixtures"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.TransactWriteItemsOutput), args.Error(1)
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.BatchWriteItemOutput), args.Error(1)
}

func getItemFor(t *testing.T, node *entities.Node) *dynamodb.GetItemOutput {
	t.Helper()
	av, err := attributevalue.MarshalMap(newNodeItem(node))
	require.NoError(t, err)
	return &dynamodb.GetItemOutput{Item: av}
}

func keyIs(pk string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return stringAttr(in.Key, "PK") == pk
	})
}

func attributeNames(names map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, v := range names {
		out = append(out, v)
	}
	return out
}

func TestNodeStore_GetByID(t *testing.T) {
	// Arrange
	api := new(mockAPI)
	node := fixtures.NewNodeBuilder().WithID("n-1").WithIdentifiers("serial-1").
		WithRelation("poweredBy", "p-1").Build()
	api.On("GetItem", mock.Anything, keyIs("NODE#n-1")).Return(getItemFor(t, node), nil)
	api.On("GetItem", mock.Anything, keyIs("NODE#ghost")).Return(&dynamodb.GetItemOutput{}, nil)
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	// Act
	got, err := store.GetByID(context.Background(), "n-1")
	_, missingErr := store.GetByID(context.Background(), "ghost")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, node.ID, got.ID)
	assert.Equal(t, node.Relations, got.Relations)
	assert.True(t, node.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, apperrors.IsNotFound(missingErr))
}

func TestNodeStore_FindByIdentifier(t *testing.T) {
	// Arrange
	api := new(mockAPI)
	node := fixtures.NewNodeBuilder().WithID("n-1").WithIdentifiers("52:54:00:12:34:56").Build()
	ref, err := attributevalue.MarshalMap(identifierItem{
		PK: identPK("52:54:00:12:34:56"), SK: identSK("n-1"), EntityType: entityIdent, NodeID: "n-1",
	})
	require.NoError(t, err)

	api.On("GetItem", mock.Anything, keyIs("NODE#52:54:00:12:34:56")).Return(&dynamodb.GetItemOutput{}, nil)
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{ref}}, nil)
	api.On("GetItem", mock.Anything, keyIs("NODE#n-1")).Return(getItemFor(t, node), nil)
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	// Act
	got, err := store.FindByIdentifier(context.Background(), "52:54:00:12:34:56")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "n-1", got.ID)
	api.AssertExpectations(t)
}

func TestNodeStore_CreateConflict(t *testing.T) {
	api := new(mockAPI)
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 3
	})).Return(nil, &types.TransactionCanceledException{
		Message: aws.String("cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")}, {Code: aws.String("None")}, {Code: aws.String("None")},
		},
	})
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	_, err := store.Create(context.Background(),
		fixtures.NewNodeBuilder().WithID("n-1").WithIdentifiers("a", "b", "a").Build())

	assert.True(t, apperrors.IsConflict(err))
	api.AssertExpectations(t)
}

func TestNodeStore_RemoveListItemsByPath_FollowsShiftedEntry(t *testing.T) {
	// Arrange
	api := new(mockAPI)
	// the pull was computed when powers sat at index 0
	node := fixtures.NewNodeBuilder().WithID("p-1").
		WithRelation("manages", "m-1").
		WithRelation("powers", "c-1", "c-2").Build()
	api.On("GetItem", mock.Anything, keyIs("NODE#p-1")).Return(getItemFor(t, node), nil)

	var captured *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*dynamodb.UpdateItemInput)
	}).Return(&dynamodb.UpdateItemOutput{}, nil).Once()
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	// Act
	err := store.RemoveListItemsByPath(context.Background(), "p-1", relations.PullInstruction{
		Path: relations.TargetsPath(0), Values: []string{"c-1"}, RelationType: "powers",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Contains(t, *captured.UpdateExpression, "[1]")
	assert.Contains(t, *captured.ConditionExpression, "size")
	assert.Subset(t, attributeNames(captured.ExpressionAttributeNames), []string{"Relations", "Targets", "RelationType"})

	var remaining []string
	found := false
	for _, v := range captured.ExpressionAttributeValues {
		if list, ok := v.(*types.AttributeValueMemberL); ok {
			require.NoError(t, attributevalue.Unmarshal(list, &remaining))
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, []string{"c-2"}, remaining)
}

func TestNodeStore_RemoveListItemsByPath_EntryStillPopulated(t *testing.T) {
	api := new(mockAPI)
	node := fixtures.NewNodeBuilder().WithID("p-1").WithRelation("powers", "c-2").Build()
	api.On("GetItem", mock.Anything, keyIs("NODE#p-1")).Return(getItemFor(t, node), nil)
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	err := store.RemoveListItemsByPath(context.Background(), "p-1", relations.PullInstruction{
		Path: relations.RelationsField, RelationType: "powers",
	})

	require.NoError(t, err)
	api.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}

func TestNodeStore_RemoveListItemsByPath_LostRace(t *testing.T) {
	// Arrange
	api := new(mockAPI)
	node := fixtures.NewNodeBuilder().WithID("p-1").WithRelation("powers").Build()
	api.On("GetItem", mock.Anything, keyIs("NODE#p-1")).Return(getItemFor(t, node), nil)
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return strings.Contains(*in.UpdateExpression, "REMOVE")
	})).Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")})
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	// Act
	err := store.RemoveListItemsByPath(context.Background(), "p-1", relations.PullInstruction{
		Path: relations.RelationsField, RelationType: "powers",
	})

	// Assert
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, apperrors.CodeConcurrentWrite, apperrors.GetAppError(err).Code)
	api.AssertExpectations(t)
}

func TestNodeStore_Query(t *testing.T) {
	// Arrange
	api := new(mockAPI)
	first := fixtures.NewNodeBuilder().WithID("n-1").Build()
	second := fixtures.NewNodeBuilder().WithID("n-2").Build()
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	a1, err := attributevalue.MarshalMap(newNodeItem(first))
	require.NoError(t, err)
	a2, err := attributevalue.MarshalMap(newNodeItem(second))
	require.NoError(t, err)

	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == "GSI1" && in.FilterExpression != nil
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{a1, a2}}, nil)
	store := NewNodeStore(api, "nodes", "GSI1", zap.NewNop())

	// Act
	nodes, err := store.Query(context.Background(), ports.NodeQuery{Type: valueobjects.NodeTypeCompute, Limit: 1})

	// Assert
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "n-1", nodes[0].ID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "condition failed",
			err:   &types.ConditionalCheckFailedException{Message: aws.String("x")},
			check: apperrors.IsConflict,
		},
		{
			name: "throttled",
			err:  &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
			check: func(err error) bool {
				return apperrors.IsType(err, apperrors.ErrorTypeUnavailable)
			},
		},
		{
			name: "other",
			err:  &smithy.GenericAPIError{Code: "InternalServerError"},
			check: func(err error) bool {
				return apperrors.IsType(err, apperrors.ErrorTypeDatabase)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(classify(tt.err, "op")))
		})
	}
}

func TestDiffIdentifiers(t *testing.T) {
	added, removed := diffIdentifiers([]string{"a", "b", "c"}, []string{"c", "d", "d", "a"})

	assert.Equal(t, []string{"d"}, added)
	assert.Equal(t, []string{"b"}, removed)
}
