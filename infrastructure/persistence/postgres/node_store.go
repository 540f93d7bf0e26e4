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
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/relations"
	apperrors "inventory-backend/pkg/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const nodeColumns = `id, name, type, identifiers, tags, relations, created_at, updated_at`

// pq error codes the store maps onto application errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeLockNotAvailable     = "55P03"
)

// NodeStore implements ports.NodeStore on the nodes table.
type NodeStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewNodeStore creates a node store on db.
func NewNodeStore(db *sql.DB, logger *zap.Logger) *NodeStore {
	return &NodeStore{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*entities.Node, error) {
	var (
		node          entities.Node
		nodeType      string
		relationsJSON []byte
	)
	if err := row.Scan(
		&node.ID,
		&node.Name,
		&nodeType,
		pq.Array(&node.Identifiers),
		pq.Array(&node.Tags),
		&relationsJSON,
		&node.CreatedAt,
		&node.UpdatedAt,
	); err != nil {
		return nil, err
	}
	node.Type = valueobjects.NodeType(nodeType)
	if err := json.Unmarshal(relationsJSON, &node.Relations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relations of node %s: %w", node.ID, err)
	}
	if len(node.Relations) == 0 {
		node.Relations = nil
	}
	if len(node.Identifiers) == 0 {
		node.Identifiers = nil
	}
	if len(node.Tags) == 0 {
		node.Tags = nil
	}
	return &node, nil
}

func marshalRelations(entries []entities.RelationEntry) ([]byte, error) {
	if entries == nil {
		entries = []entities.RelationEntry{}
	}
	return json.Marshal(entries)
}

func stringArray(values []string) interface{} {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}

// GetByID retrieves a node by its id.
func (s *NodeStore) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	if err != nil {
		return nil, classify(err, "get node")
	}
	return node, nil
}

// FindByIdentifier matches identifier against the id first, then against
// the identifiers array. Among identifier matches the lowest id wins.
func (s *NodeStore) FindByIdentifier(ctx context.Context, identifier string) (*entities.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE id = $1 OR $1 = ANY(identifiers)
		ORDER BY (id = $1) DESC, id
		LIMIT 1
	`
	node, err := scanNode(s.db.QueryRowContext(ctx, query, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("node %s", identifier))
	}
	if err != nil {
		return nil, classify(err, "find node by identifier")
	}
	return node, nil
}

// Query lists nodes in creation order. A zero limit returns every match.
func (s *NodeStore) Query(ctx context.Context, q ports.NodeQuery) ([]*entities.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR $2 = ANY(tags))
		ORDER BY created_at, id
		LIMIT NULLIF($3, 0)
	`
	rows, err := s.db.QueryContext(ctx, query, string(q.Type), q.Tag, q.Limit)
	if err != nil {
		return nil, classify(err, "query nodes")
	}
	defer rows.Close()

	var nodes []*entities.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, classify(err, "query nodes")
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "query nodes")
	}
	return nodes, nil
}

// Create inserts the node; an existing id is a conflict.
func (s *NodeStore) Create(ctx context.Context, node *entities.Node) (*entities.Node, error) {
	stored := node.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	relationsJSON, err := marshalRelations(stored.Relations)
	if err != nil {
		return nil, apperrors.NewDatabaseError("create node", err)
	}

	query := `
		INSERT INTO nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		stored.ID, stored.Name, string(stored.Type),
		stringArray(stored.Identifiers), stringArray(stored.Tags), relationsJSON,
		stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		if isCode(err, codeUniqueViolation) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("node %s already exists", stored.ID))
		}
		return nil, classify(err, "create node")
	}
	return stored, nil
}

// UpdateByID applies update to the locked row and writes it back.
func (s *NodeStore) UpdateByID(ctx context.Context, id string, update ports.NodeUpdate) (*entities.Node, error) {
	var updated *entities.Node
	err := s.withLockedNode(ctx, id, "update node", func(tx *sql.Tx, node *entities.Node) error {
		update.Apply(node)
		node.Touch(s.now())
		if err := s.writeNode(ctx, tx, node); err != nil {
			return err
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveListItemsByPath applies the pull to the locked row. Concurrent
// pulls on one node serialize on the row lock.
func (s *NodeStore) RemoveListItemsByPath(ctx context.Context, id string, pull relations.PullInstruction) error {
	return s.withLockedNode(ctx, id, "pull relation items", func(tx *sql.Tx, node *entities.Node) error {
		changed, err := relations.ApplyPull(node, pull)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		if !changed {
			return nil
		}
		node.Touch(s.now())
		return s.writeNode(ctx, tx, node)
	})
}

// Destroy deletes the node row.
func (s *NodeStore) Destroy(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return classify(err, "destroy node")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err, "destroy node")
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	s.logger.Debug("Node row deleted", zap.String("nodeID", id))
	return nil
}

func (s *NodeStore) withLockedNode(ctx context.Context, id, operation string, fn func(tx *sql.Tx, node *entities.Node) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, operation)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1 FOR UPDATE`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	if err != nil {
		return classify(err, operation)
	}

	if err := fn(tx, node); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err, operation)
	}
	return nil
}

func (s *NodeStore) writeNode(ctx context.Context, tx *sql.Tx, node *entities.Node) error {
	relationsJSON, err := marshalRelations(node.Relations)
	if err != nil {
		return apperrors.NewDatabaseError("write node", err)
	}
	query := `
		UPDATE nodes
		SET name = $2, type = $3, identifiers = $4, tags = $5, relations = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		node.ID, node.Name, string(node.Type),
		stringArray(node.Identifiers), stringArray(node.Tags), relationsJSON, node.UpdatedAt,
	)
	if err != nil {
		return classify(err, "write node")
	}
	return nil
}

// classify maps a driver failure onto an application error.
func classify(err error, operation string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeSerializationFailure, codeLockNotAvailable:
			return apperrors.NewConflictError(fmt.Sprintf("%s lost a race with a concurrent write", operation)).
				WithCode(apperrors.CodeConcurrentWrite).
				WithCause(err)
		}
	}
	return apperrors.NewDatabaseError(operation, err)
}

func isCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
