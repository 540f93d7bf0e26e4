package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	apperrors "inventory-backend/pkg/errors"

	"go.uber.org/zap"
)

// RecordStore implements ports.NodeRecordStore on the catalogs, work_items
// and lookups tables.
type RecordStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordStore creates a record store on db.
func NewRecordStore(db *sql.DB, logger *zap.Logger) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

// PutCatalog inserts or replaces a catalog.
func (s *RecordStore) PutCatalog(ctx context.Context, catalog entities.Catalog) error {
	data, err := json.Marshal(catalog.Data)
	if err != nil {
		return apperrors.NewDatabaseError("put catalog", err)
	}
	if catalog.CreatedAt.IsZero() {
		catalog.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO catalogs (id, node_id, source, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET node_id = EXCLUDED.node_id, source = EXCLUDED.source, data = EXCLUDED.data
	`
	if _, err := s.db.ExecContext(ctx, query, catalog.ID, catalog.NodeID, catalog.Source, data, catalog.CreatedAt); err != nil {
		return classify(err, "put catalog")
	}
	return nil
}

// PutWorkItem inserts or replaces a poller work item.
func (s *RecordStore) PutWorkItem(ctx context.Context, item entities.WorkItem) error {
	query := `
		INSERT INTO work_items (id, node_id, name, poll_interval_sec, next_run_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET node_id = EXCLUDED.node_id, name = EXCLUDED.name,
			poll_interval_sec = EXCLUDED.poll_interval_sec, next_run_at = EXCLUDED.next_run_at
	`
	nextRun := sql.NullTime{Time: item.NextRunAt, Valid: !item.NextRunAt.IsZero()}
	if _, err := s.db.ExecContext(ctx, query, item.ID, item.NodeID, item.Name, item.PollIntervalSec, nextRun); err != nil {
		return classify(err, "put work item")
	}
	return nil
}

// PutLookup inserts or replaces a lookup row.
func (s *RecordStore) PutLookup(ctx context.Context, lookup entities.Lookup) error {
	query := `
		INSERT INTO lookups (mac_address, ip_address, node_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (mac_address) DO UPDATE SET ip_address = EXCLUDED.ip_address, node_id = EXCLUDED.node_id
	`
	_, err := s.db.ExecContext(ctx, query,
		lookup.MACAddress,
		sql.NullString{String: lookup.IPAddress, Valid: lookup.IPAddress != ""},
		sql.NullString{String: lookup.NodeID, Valid: lookup.NodeID != ""},
	)
	if err != nil {
		return classify(err, "put lookup")
	}
	return nil
}

// Lookup returns the lookup row for mac.
func (s *RecordStore) Lookup(ctx context.Context, mac string) (entities.Lookup, error) {
	var (
		lookup entities.Lookup
		ip     sql.NullString
		nodeID sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT mac_address, ip_address, node_id FROM lookups WHERE mac_address = $1`, mac,
	).Scan(&lookup.MACAddress, &ip, &nodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Lookup{}, apperrors.NewNotFoundError(fmt.Sprintf("lookup %s", mac))
	}
	if err != nil {
		return entities.Lookup{}, classify(err, "get lookup")
	}
	lookup.IPAddress = ip.String
	lookup.NodeID = nodeID.String
	return lookup, nil
}

// DeleteCatalogs removes every catalog recorded for the node.
func (s *RecordStore) DeleteCatalogs(ctx context.Context, nodeID string) error {
	return s.exec(ctx, "delete catalogs", `DELETE FROM catalogs WHERE node_id = $1`, nodeID)
}

// DeleteWorkItems removes the node's poller work items.
func (s *RecordStore) DeleteWorkItems(ctx context.Context, nodeID string) error {
	return s.exec(ctx, "delete work items", `DELETE FROM work_items WHERE node_id = $1`, nodeID)
}

// ClearLookups unsets node_id on the node's lookup rows, keeping the rows.
func (s *RecordStore) ClearLookups(ctx context.Context, nodeID string) error {
	return s.exec(ctx, "clear lookups", `UPDATE lookups SET node_id = NULL WHERE node_id = $1`, nodeID)
}

func (s *RecordStore) exec(ctx context.Context, operation, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err, operation)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.logger.Debug("Node records cleaned",
			zap.String("operation", operation),
			zap.Int64("rows", affected),
		)
	}
	return nil
}

// WorkflowGate reads active workflows from the graph_objects table.
type WorkflowGate struct {
	db *sql.DB
}

// NewWorkflowGate creates a gate on db.
func NewWorkflowGate(db *sql.DB) *WorkflowGate {
	return &WorkflowGate{db: db}
}

// FindActiveGraphForTarget returns the oldest pending or running graph
// targeting nodeID, or nil.
func (g *WorkflowGate) FindActiveGraphForTarget(ctx context.Context, nodeID string) (*ports.ActiveGraph, error) {
	query := `
		SELECT id, name, target, status, started_at
		FROM graph_objects
		WHERE target = $1 AND status IN ('pending', 'running')
		ORDER BY started_at
		LIMIT 1
	`
	var graph ports.ActiveGraph
	err := g.db.QueryRowContext(ctx, query, nodeID).
		Scan(&graph.ID, &graph.Name, &graph.Target, &graph.Status, &graph.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "find active workflow")
	}
	return &graph, nil
}
