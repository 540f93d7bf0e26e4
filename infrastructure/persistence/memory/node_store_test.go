package memory

import (
	"context"
	"testing"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/relations"
	"inventory-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewNodeStore()
	node := &entities.Node{ID: "c-1", Type: valueobjects.NodeTypeCompute, Identifiers: []string{"aa:bb:cc:dd:ee:ff"}}

	created, err := store.Create(ctx, node)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = store.Create(ctx, node)
	assert.True(t, errors.IsConflict(err))

	byID, err := store.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", byID.ID)

	byMac, err := store.FindByIdentifier(ctx, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, "c-1", byMac.ID)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
	_, err = store.FindByIdentifier(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestNodeStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewNodeStore()
	_, err := store.Create(ctx, &entities.Node{ID: "p-1", Relations: []entities.RelationEntry{
		{RelationType: "powers", Targets: []string{"c-1"}},
	}})
	require.NoError(t, err)

	node, _ := store.GetByID(ctx, "p-1")
	node.Relations[0].Targets[0] = "mutated"

	again, _ := store.GetByID(ctx, "p-1")
	assert.Equal(t, []string{"c-1"}, again.TargetsOf("powers"))
}

func TestNodeStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewNodeStore()
	for _, n := range []*entities.Node{
		{ID: "a", Type: valueobjects.NodeTypeRack, Tags: []string{"lab"}},
		{ID: "b", Type: valueobjects.NodeTypeCompute},
		{ID: "c", Type: valueobjects.NodeTypeCompute, Tags: []string{"lab"}},
	} {
		_, err := store.Create(ctx, n)
		require.NoError(t, err)
	}

	compute, err := store.Query(ctx, ports.NodeQuery{Type: valueobjects.NodeTypeCompute})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, entities.IDs(compute))

	lab, _ := store.Query(ctx, ports.NodeQuery{Tag: "lab", Limit: 1})
	assert.Len(t, lab, 1)
}

func TestNodeStore_RemoveListItemsByPath(t *testing.T) {
	ctx := context.Background()
	store := NewNodeStore()
	reg := relations.DefaultRegistry()
	_, err := store.Create(ctx, &entities.Node{ID: "p-1", Relations: []entities.RelationEntry{
		{RelationType: "powers", Targets: []string{"c-1", "c-2"}},
	}})
	require.NoError(t, err)
	node, _ := store.GetByID(ctx, "p-1")

	pull, ok := reg.TargetsToBeRemoved(node, "powers", []string{"c-1"})
	require.True(t, ok)
	require.NoError(t, store.RemoveListItemsByPath(ctx, "p-1", pull))

	// entry still holds c-2, so the entry pull leaves it alone
	require.NoError(t, store.RemoveListItemsByPath(ctx, "p-1",
		relations.PullInstruction{Path: relations.RelationsField, RelationType: "powers"}))

	node, _ = store.GetByID(ctx, "p-1")
	assert.Equal(t, []string{"c-2"}, node.TargetsOf("powers"))

	err = store.RemoveListItemsByPath(ctx, "p-1", relations.PullInstruction{Path: "relations.x.targets"})
	assert.True(t, errors.IsValidation(err))
}

func TestNodeStore_UpdateAndDestroy(t *testing.T) {
	ctx := context.Background()
	store := NewNodeStore()
	_, err := store.Create(ctx, &entities.Node{ID: "r-1"})
	require.NoError(t, err)

	name := "rack one"
	updated, err := store.UpdateByID(ctx, "r-1", ports.NodeUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "rack one", updated.Name)

	require.NoError(t, store.Destroy(ctx, "r-1"))
	assert.Equal(t, 0, store.Len())
	assert.True(t, errors.IsNotFound(store.Destroy(ctx, "r-1")))

	_, err = store.UpdateByID(ctx, "r-1", ports.NodeUpdate{Name: &name})
	assert.True(t, errors.IsNotFound(err))
}

func TestRecordStore_ClearLookupsKeepsRows(t *testing.T) {
	ctx := context.Background()
	records := NewRecordStore()
	require.NoError(t, records.PutCatalog(ctx, entities.Catalog{ID: "cat-1", NodeID: "c-1", Source: "dmi"}))
	require.NoError(t, records.PutWorkItem(ctx, entities.WorkItem{ID: "w-1", NodeID: "c-1", Name: "snmp"}))
	require.NoError(t, records.PutLookup(ctx, entities.Lookup{MACAddress: "aa", IPAddress: "10.0.0.1", NodeID: "c-1"}))

	require.NoError(t, records.DeleteCatalogs(ctx, "c-1"))
	require.NoError(t, records.DeleteWorkItems(ctx, "c-1"))
	require.NoError(t, records.ClearLookups(ctx, "c-1"))

	assert.Empty(t, records.Catalogs("c-1"))
	assert.Empty(t, records.WorkItems("c-1"))
	lookup, ok := records.Lookup("aa")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", lookup.IPAddress)
	assert.Empty(t, lookup.NodeID)
}

func TestWorkflowGate(t *testing.T) {
	ctx := context.Background()
	gate := NewWorkflowGate()

	graph, err := gate.FindActiveGraphForTarget(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, graph)

	gate.SetActive(ports.ActiveGraph{ID: "g-1", Target: "c-1"})
	graph, _ = gate.FindActiveGraphForTarget(ctx, "c-1")
	require.NotNil(t, graph)
	assert.Equal(t, "g-1", graph.ID)

	gate.Finish("c-1")
	graph, _ = gate.FindActiveGraphForTarget(ctx, "c-1")
	assert.Nil(t, graph)
}
