package ports

import (
	"context"
	"time"

	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/events"
	"inventory-backend/domain/relations"
)

// NodeStore is the keyed document store for Node records.
// Lookups of a missing node fail with a pkg/errors NotFound error.
type NodeStore interface {
	// GetByID retrieves a node by its id
	GetByID(ctx context.Context, id string) (*entities.Node, error)

	// FindByIdentifier retrieves a node by id or by one of its identifiers
	FindByIdentifier(ctx context.Context, identifier string) (*entities.Node, error)

	// Query lists nodes matching the query
	Query(ctx context.Context, query NodeQuery) ([]*entities.Node, error)

	// Create inserts a new node; an existing id is a conflict
	Create(ctx context.Context, node *entities.Node) (*entities.Node, error)

	// UpdateByID sets the given fields and returns the stored node
	UpdateByID(ctx context.Context, id string, update NodeUpdate) (*entities.Node, error)

	// RemoveListItemsByPath atomically pulls items from a list field
	RemoveListItemsByPath(ctx context.Context, id string, pull relations.PullInstruction) error

	// Destroy removes the node document
	Destroy(ctx context.Context, id string) error
}

// NodeRecordStore owns the records that hang off a node: discovery
// catalogs, poller work items and lookup-table rows.
type NodeRecordStore interface {
	// DeleteCatalogs removes every catalog recorded for the node
	DeleteCatalogs(ctx context.Context, nodeID string) error

	// DeleteWorkItems removes the node's poller work items
	DeleteWorkItems(ctx context.Context, nodeID string) error

	// ClearLookups unsets the node reference on lookup rows, keeping the rows
	ClearLookups(ctx context.Context, nodeID string) error
}

// WorkflowGate answers whether an orchestration workflow currently targets a node.
type WorkflowGate interface {
	// FindActiveGraphForTarget returns nil when no workflow is active
	FindActiveGraphForTarget(ctx context.Context, nodeID string) (*ActiveGraph, error)
}

// EventPublisher is the best-effort sink for node lifecycle events.
type EventPublisher interface {
	PublishNodeEvent(ctx context.Context, node *entities.Node, name events.NodeEventName) error
}

// ActiveGraph describes a running workflow that targets a node.
type ActiveGraph struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Target    string    `json:"target"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// NodeQuery filters Query results. Zero values match everything.
type NodeQuery struct {
	Type  valueobjects.NodeType
	Tag   string
	Limit int
}

// Matches reports whether node satisfies the query filters.
func (q NodeQuery) Matches(node *entities.Node) bool {
	if q.Type != "" && node.Type != q.Type {
		return false
	}
	if q.Tag != "" {
		found := false
		for _, tag := range node.Tags {
			if tag == q.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NodeUpdate carries the fields UpdateByID sets. Nil fields are left alone.
type NodeUpdate struct {
	Name        *string
	Type        *valueobjects.NodeType
	Identifiers *[]string
	Tags        *[]string
	Relations   *[]entities.RelationEntry
}

// IsEmpty reports whether the update sets nothing.
func (u NodeUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.Identifiers == nil && u.Tags == nil && u.Relations == nil
}

// Apply copies the set fields onto node.
func (u NodeUpdate) Apply(node *entities.Node) {
	if u.Name != nil {
		node.Name = *u.Name
	}
	if u.Type != nil {
		node.Type = *u.Type
	}
	if u.Identifiers != nil {
		node.Identifiers = append([]string(nil), (*u.Identifiers)...)
	}
	if u.Tags != nil {
		node.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.Relations != nil {
		node.Relations = (&entities.Node{Relations: *u.Relations}).Clone().Relations
	}
}

// RelationsUpdate is the update that replaces a node's relation list.
func RelationsUpdate(entries []entities.RelationEntry) NodeUpdate {
	return NodeUpdate{Relations: &entries}
}
