package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/relations"
	apperrors "inventory-backend/pkg/errors"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
		wantCode string
	}{
		{
			name:     "serialization failure",
			err:      &pq.Error{Code: codeSerializationFailure},
			wantType: apperrors.ErrorTypeConflict,
			wantCode: apperrors.CodeConcurrentWrite,
		},
		{
			name:     "lock not available",
			err:      &pq.Error{Code: codeLockNotAvailable},
			wantType: apperrors.ErrorTypeConflict,
			wantCode: apperrors.CodeConcurrentWrite,
		},
		{
			name:     "other driver error",
			err:      &pq.Error{Code: "42P01"},
			wantType: apperrors.ErrorTypeDatabase,
		},
		{
			name:     "plain error",
			err:      errors.New("connection reset"),
			wantType: apperrors.ErrorTypeDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "pull relation items")

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, appErr.Code)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	assert.True(t, isCode(&pq.Error{Code: codeUniqueViolation}, codeUniqueViolation))
	assert.False(t, isCode(&pq.Error{Code: codeLockNotAvailable}, codeUniqueViolation))
	assert.False(t, isCode(errors.New("boom"), codeUniqueViolation))
}

func TestNodeStore_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	store := NewNodeStore(db.DB, zap.NewNop())
	ctx := context.Background()

	// Arrange
	rack := &entities.Node{
		ID:          "rack-r",
		Name:        "Rack R",
		Type:        "rack",
		Identifiers: []string{"serial-r"},
		Tags:        []string{"dc1"},
		Relations: []entities.RelationEntry{
			{RelationType: "powers", Targets: []string{"pdu-1"}},
			{RelationType: "contains", Targets: []string{"enc-e", "enc-f"}},
		},
	}

	// Act
	created, err := store.Create(ctx, rack)
	require.NoError(t, err)
	_, dupErr := store.Create(ctx, rack)
	byIdent, identErr := store.FindByIdentifier(ctx, "serial-r")
	listed, listErr := store.Query(ctx, ports.NodeQuery{Tag: "dc1"})

	// Assert
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, apperrors.IsType(dupErr, apperrors.ErrorTypeConflict))
	require.NoError(t, identErr)
	assert.Equal(t, "rack-r", byIdent.ID)
	require.NoError(t, listErr)
	require.Len(t, listed, 1)
	assert.Equal(t, rack.Relations, listed[0].Relations)

	// Act
	err = store.RemoveListItemsByPath(ctx, "rack-r", relations.PullInstruction{
		Path:         relations.TargetsPath(1),
		Values:       []string{"enc-e"},
		RelationType: "contains",
	})
	require.NoError(t, err)
	err = store.RemoveListItemsByPath(ctx, "rack-r", relations.PullInstruction{
		Path:         relations.TargetsPath(0),
		Values:       []string{"pdu-1"},
		RelationType: "powers",
	})
	require.NoError(t, err)
	err = store.RemoveListItemsByPath(ctx, "rack-r", relations.PullInstruction{
		Path:         relations.RelationsField,
		RelationType: "powers",
	})
	require.NoError(t, err)

	// Assert
	stored, err := store.GetByID(ctx, "rack-r")
	require.NoError(t, err)
	assert.Equal(t, []entities.RelationEntry{
		{RelationType: "contains", Targets: []string{"enc-f"}},
	}, stored.Relations)

	// Act
	name := "Rack R2"
	updated, err := store.UpdateByID(ctx, "rack-r", ports.NodeUpdate{Name: &name})
	require.NoError(t, err)
	require.NoError(t, store.Destroy(ctx, "rack-r"))
	_, missingErr := store.GetByID(ctx, "rack-r")
	destroyAgain := store.Destroy(ctx, "rack-r")

	// Assert
	assert.Equal(t, "Rack R2", updated.Name)
	assert.True(t, apperrors.IsType(missingErr, apperrors.ErrorTypeNotFound))
	assert.True(t, apperrors.IsType(destroyAgain, apperrors.ErrorTypeNotFound))
}

func TestRecordStore_CleanupAndGate(t *testing.T) {
	db := setupTestDB(t)
	records := NewRecordStore(db.DB, zap.NewNop())
	gate := NewWorkflowGate(db.DB)
	ctx := context.Background()

	// Arrange
	require.NoError(t, records.PutCatalog(ctx, entities.Catalog{ID: "cat-1", NodeID: "c-1", Source: "lldp"}))
	require.NoError(t, records.PutWorkItem(ctx, entities.WorkItem{ID: "w-1", NodeID: "c-1", Name: "poll", PollIntervalSec: 60}))
	require.NoError(t, records.PutLookup(ctx, entities.Lookup{MACAddress: "52:54:00:aa:bb:01", IPAddress: "10.0.0.5", NodeID: "c-1"}))
	_, err := db.DB.ExecContext(ctx,
		`INSERT INTO graph_objects (id, name, target, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		"graph-1", "Graph.Discovery", "c-1", "running", time.Now().UTC(),
	)
	require.NoError(t, err)

	// Act
	active, gateErr := gate.FindActiveGraphForTarget(ctx, "c-1")
	idle, idleErr := gate.FindActiveGraphForTarget(ctx, "c-2")
	require.NoError(t, records.DeleteCatalogs(ctx, "c-1"))
	require.NoError(t, records.DeleteWorkItems(ctx, "c-1"))
	require.NoError(t, records.ClearLookups(ctx, "c-1"))

	// Assert
	require.NoError(t, gateErr)
	require.NotNil(t, active)
	assert.Equal(t, "graph-1", active.ID)
	require.NoError(t, idleErr)
	assert.Nil(t, idle)

	var catalogs, workItems int
	require.NoError(t, db.DB.QueryRowContext(ctx, `SELECT count(*) FROM catalogs`).Scan(&catalogs))
	require.NoError(t, db.DB.QueryRowContext(ctx, `SELECT count(*) FROM work_items`).Scan(&workItems))
	assert.Zero(t, catalogs)
	assert.Zero(t, workItems)

	lookup, err := records.Lookup(ctx, "52:54:00:aa:bb:01")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", lookup.IPAddress)
	assert.Empty(t, lookup.NodeID)
}
