package handlers

import (
	"context"

	"inventory-backend/application/ports"
	"inventory-backend/application/queries"
	"inventory-backend/domain/config"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
)

// NodeQueryHandler answers the read-side node queries
type NodeQueryHandler struct {
	store ports.NodeStore
	rules *config.DomainConfig
}

// NewNodeQueryHandler creates a new node query handler
func NewNodeQueryHandler(store ports.NodeStore, rules *config.DomainConfig) *NodeQueryHandler {
	return &NodeQueryHandler{store: store, rules: rules}
}

// GetNode handles GetNodeQuery
func (h *NodeQueryHandler) GetNode(ctx context.Context, query queries.GetNodeQuery) (*entities.Node, error) {
	return h.store.FindByIdentifier(ctx, query.Identifier)
}

// ListNodes handles ListNodesQuery
func (h *NodeQueryHandler) ListNodes(ctx context.Context, query queries.ListNodesQuery) ([]*entities.Node, error) {
	return h.store.Query(ctx, ports.NodeQuery{
		Type:  valueobjects.NodeType(query.Type),
		Tag:   query.Tag,
		Limit: h.rules.ClampQueryLimit(query.Limit),
	})
}

// GetRelations handles GetRelationsQuery. A node without relations
// yields an empty, non-nil list.
func (h *NodeQueryHandler) GetRelations(ctx context.Context, query queries.GetRelationsQuery) ([]entities.RelationEntry, error) {
	node, err := h.store.FindByIdentifier(ctx, query.Identifier)
	if err != nil {
		return nil, err
	}
	if node.Relations == nil {
		return []entities.RelationEntry{}, nil
	}
	return node.Relations, nil
}
