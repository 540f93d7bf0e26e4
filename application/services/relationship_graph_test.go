package services

import (
	"context"
	"testing"

	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/relations"
	memevents "inventory-backend/infrastructure/messaging/memory"
	memstore "inventory-backend/infrastructure/persistence/memory"
	"inventory-backend/pkg/errors"
	"inventory-backend/pkg/observability"
	"inventory-backend/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	store   *memstore.NodeStore
	records *memstore.RecordStore
	gate    *memstore.WorkflowGate
	events  *memevents.Publisher
	metrics *observability.Collector
	graph   *RelationshipGraph
}

func newHarness(t *testing.T, nodes ...*entities.Node) *harness {
	t.Helper()
	h := &harness{
		store:   memstore.NewNodeStore(),
		records: memstore.NewRecordStore(),
		gate:    memstore.NewWorkflowGate(),
		events:  memevents.NewPublisher(zap.NewNop()),
		metrics: observability.NewCollector("test"),
	}
	h.graph = NewRelationshipGraph(relations.DefaultRegistry(), h.store, h.records, h.gate, h.events, h.metrics, zap.NewNop())
	fixtures.Seed(context.Background(), h.store, nodes...)
	return h
}

func (h *harness) node(t *testing.T, id string) *entities.Node {
	t.Helper()
	node, err := h.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return node
}

func TestAddRelations_UpdatesBothSides(t *testing.T) {
	// Arrange
	ctx := context.Background()
	rack := fixtures.NewNodeBuilder().WithID("r-1").WithType(valueobjects.NodeTypeRack).Build()
	enc1 := fixtures.NewNodeBuilder().WithID("e-1").WithType(valueobjects.NodeTypeEnclosure).Build()
	enc2 := fixtures.NewNodeBuilder().WithID("e-2").WithType(valueobjects.NodeTypeEnclosure).Build()
	h := newHarness(t, rack, enc1, enc2)

	// Act
	updated, err := h.graph.AddRelations(ctx, "r-1", map[string][]string{"contains": {"e-1", "e-2"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"e-1", "e-2"}, updated.TargetsOf("contains"))
	assert.Equal(t, []string{"e-1", "e-2"}, h.node(t, "r-1").TargetsOf("contains"))
	assert.Equal(t, []string{"r-1"}, h.node(t, "e-1").TargetsOf("containedBy"))
	assert.Equal(t, []string{"r-1"}, h.node(t, "e-2").TargetsOf("containedBy"))
}

func TestAddRelations_ResolvesIdentifiersToIDs(t *testing.T) {
	// Arrange
	ctx := context.Background()
	pdu := fixtures.NewNodeBuilder().WithID("p-1").WithType(valueobjects.NodeTypePDU).Build()
	compute := fixtures.NewNodeBuilder().WithID("c-1").WithIdentifiers("52:54:00:12:34:56").Build()
	h := newHarness(t, pdu, compute)

	// Act
	_, err := h.graph.AddRelations(ctx, "p-1", map[string][]string{"powers": {"52:54:00:12:34:56"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1"}, h.node(t, "p-1").TargetsOf("powers"))
	assert.Equal(t, []string{"p-1"}, h.node(t, "c-1").TargetsOf("poweredBy"))
}

func TestAddRelations_IgnoresUnknownTypes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		fixtures.NewNodeBuilder().WithID("n-1").Build(),
		fixtures.NewNodeBuilder().WithID("n-2").Build(),
	)

	node, err := h.graph.AddRelations(ctx, "n-1", map[string][]string{"ownedBy": {"n-2"}})

	require.NoError(t, err)
	assert.Empty(t, node.Relations)
	assert.Empty(t, h.node(t, "n-2").Relations)
}

func TestAddRelations_UnresolvableTargetChangesNothing(t *testing.T) {
	// Arrange
	ctx := context.Background()
	h := newHarness(t,
		fixtures.NewNodeBuilder().WithID("r-1").Build(),
		fixtures.NewNodeBuilder().WithID("e-1").Build(),
		fixtures.NewNodeBuilder().WithID("p-1").Build(),
	)

	// Act
	_, err := h.graph.AddRelations(ctx, "r-1", map[string][]string{
		"contains":  {"e-1"},
		"poweredBy": {"p-1", "ghost"},
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	for _, id := range []string{"r-1", "e-1", "p-1"} {
		assert.Empty(t, h.node(t, id).Relations, id)
	}
}

func TestAddRelations_SecondParentRejected(t *testing.T) {
	// Arrange
	ctx := context.Background()
	h := newHarness(t,
		fixtures.NewNodeBuilder().WithID("r-1").WithRelation("contains", "e-1").Build(),
		fixtures.NewNodeBuilder().WithID("r-2").Build(),
		fixtures.NewNodeBuilder().WithID("e-1").WithRelation("containedBy", "r-1").Build(),
	)

	// Act
	_, err := h.graph.AddRelations(ctx, "r-2", map[string][]string{"contains": {"e-1"}})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, h.node(t, "r-2").Relations)
	assert.Equal(t, []string{"r-1"}, h.node(t, "e-1").TargetsOf("containedBy"))
}

func TestAddRelations_SelfTargetRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixtures.NewNodeBuilder().WithID("s-1").WithIdentifiers("sw1").Build())

	_, err := h.graph.AddRelations(ctx, "s-1", map[string][]string{"connectsTo": {"sw1"}})

	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, h.node(t, "s-1").Relations)
}

func TestAddRelations_SelfMappedType(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		fixtures.NewNodeBuilder().WithID("s-1").Build(),
		fixtures.NewNodeBuilder().WithID("s-2").Build(),
	)

	_, err := h.graph.AddRelations(ctx, "s-1", map[string][]string{"connectsTo": {"s-2"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"s-2"}, h.node(t, "s-1").TargetsOf("connectsTo"))
	assert.Equal(t, []string{"s-1"}, h.node(t, "s-2").TargetsOf("connectsTo"))
}

func TestRemoveRelations_UpdatesBothSides(t *testing.T) {
	// Arrange
	ctx := context.Background()
	h := newHarness(t,
		fixtures.NewNodeBuilder().WithID("p-1").WithRelation("powers", "c-1", "c-2").Build(),
		fixtures.NewNodeBuilder().WithID("c-1").WithRelation("poweredBy", "p-1").Build(),
		fixtures.NewNodeBuilder().WithID("c-2").WithRelation("poweredBy", "p-1").Build(),
	)

	// Act
	updated, err := h.graph.RemoveRelations(ctx, "p-1", map[string][]string{"powers": {"c-1"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2"}, updated.TargetsOf("powers"))
	_, ok := h.node(t, "c-1").Relation("poweredBy")
	assert.False(t, ok, "emptied entry must be dropped")
	assert.Equal(t, []string{"p-1"}, h.node(t, "c-2").TargetsOf("poweredBy"))
}

func TestEditNodeRelations_UnknownNode(t *testing.T) {
	h := newHarness(t)

	_, err := h.graph.AddRelations(context.Background(), "ghost", map[string][]string{"contains": {"x"}})

	assert.True(t, errors.IsNotFound(err))
}

func TestResolution(t *testing.T) {
	resolved := Resolution{ID: "a", Node: &entities.Node{ID: "a"}}
	missing := Resolution{ID: "b", Err: errors.NewNotFoundError("node b")}
	failed := Resolution{ID: "c", Err: errors.NewDatabaseError("get", assert.AnError)}

	assert.True(t, resolved.Resolved())
	assert.False(t, missing.Resolved())
	assert.True(t, missing.Missing())
	assert.False(t, failed.Missing())
	assert.False(t, failed.Resolved())
}
