// Package memory holds process-local adapters for the application ports.
// They back STORE_DRIVER=memory and the engine tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/relations"
	"inventory-backend/pkg/errors"
)

// NodeStore keeps nodes in a map. Every read and write copies the node so
// callers never share state with the store.
type NodeStore struct {
	mu    sync.RWMutex
	nodes map[string]*entities.Node
	now   func() time.Time
}

// NewNodeStore creates an empty store.
func NewNodeStore() *NodeStore {
	return &NodeStore{
		nodes: make(map[string]*entities.Node),
		now:   time.Now,
	}
}

// GetByID retrieves a node by its id
func (s *NodeStore) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	return node.Clone(), nil
}

// FindByIdentifier matches the id first, then any identifier.
func (s *NodeStore) FindByIdentifier(ctx context.Context, identifier string) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if node, ok := s.nodes[identifier]; ok {
		return node.Clone(), nil
	}
	for _, id := range s.sortedIDs() {
		if s.nodes[id].HasIdentifier(identifier) {
			return s.nodes[id].Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError(fmt.Sprintf("node %s", identifier))
}

// Query lists nodes ordered by creation time.
func (s *NodeStore) Query(ctx context.Context, query ports.NodeQuery) ([]*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Node, 0)
	for _, id := range s.sortedIDs() {
		node := s.nodes[id]
		if !query.Matches(node) {
			continue
		}
		result = append(result, node.Clone())
		if query.Limit > 0 && len(result) == query.Limit {
			break
		}
	}
	return result, nil
}

// Create inserts node. An existing id is a conflict.
func (s *NodeStore) Create(ctx context.Context, node *entities.Node) (*entities.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; exists {
		return nil, errors.NewConflictError(fmt.Sprintf("node %s already exists", node.ID))
	}

	stored := node.Clone()
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.nodes[stored.ID] = stored
	return stored.Clone(), nil
}

// UpdateByID sets the fields carried by update.
func (s *NodeStore) UpdateByID(ctx context.Context, id string, update ports.NodeUpdate) (*entities.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	update.Apply(node)
	node.Touch(s.now())
	return node.Clone(), nil
}

// RemoveListItemsByPath applies pull under the store lock, which makes it
// atomic with respect to every other write.
func (s *NodeStore) RemoveListItemsByPath(ctx context.Context, id string, pull relations.PullInstruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	changed, err := relations.ApplyPull(node, pull)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if changed {
		node.Touch(s.now())
	}
	return nil
}

// Destroy removes the node document.
func (s *NodeStore) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	delete(s.nodes, id)
	return nil
}

// Len reports how many nodes are stored.
func (s *NodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// sortedIDs must be called with the lock held.
func (s *NodeStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.nodes[ids[i]], s.nodes[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ids
}
