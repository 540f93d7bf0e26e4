package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inventory-backend/application/commands"
	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/validators"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/domain/events"
	"inventory-backend/domain/relations"
	"inventory-backend/pkg/errors"

	"go.uber.org/zap"
)

// CreateNodeHandler handles the CreateNodeCommand
type CreateNodeHandler struct {
	store     ports.NodeStore
	registry  *relations.Registry
	validator *validators.NodeValidator
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewCreateNodeHandler creates a new handler instance
func NewCreateNodeHandler(
	store ports.NodeStore,
	registry *relations.Registry,
	validator *validators.NodeValidator,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *CreateNodeHandler {
	return &CreateNodeHandler{
		store:     store,
		registry:  registry,
		validator: validator,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle creates the node. Supplied association relations are normalized
// and stored as given; the inverse side on the targets is not written.
// Component relations are refused.
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd commands.CreateNodeCommand) (*entities.Node, error) {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		id = valueobjects.NewNodeID().String()
	}

	nodeType, err := valueobjects.ParseNodeType(cmd.Type)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	now := time.Now().UTC()
	node := &entities.Node{
		ID:          id,
		Name:        strings.TrimSpace(cmd.Name),
		Type:        nodeType,
		Identifiers: cmd.Identifiers,
		Tags:        cmd.Tags,
		Relations:   cmd.Relations,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, entry := range node.Relations {
		relationType := strings.TrimSpace(entry.RelationType)
		descriptor, ok := h.registry.Lookup(relationType)
		if !ok {
			return nil, errors.NewValidationError(fmt.Sprintf("unknown relation type %q", entry.RelationType)).
				WithDetail("relationType", entry.RelationType)
		}
		// component entries are only written on both sides, by the relation editor
		if descriptor.Class == relations.ClassComponent {
			return nil, errors.NewValidationError(
				fmt.Sprintf("component relation %q cannot be set at create time; use the relations endpoint", relationType)).
				WithDetail("relationType", relationType)
		}
	}
	if err := h.registry.NormalizeRelations(node); err != nil {
		return nil, err
	}
	if err := h.validator.ValidateNode(node); err != nil {
		return nil, err
	}

	created, err := h.store.Create(ctx, node)
	if err != nil {
		return nil, err
	}

	if err := h.publisher.PublishNodeEvent(ctx, created, events.NodeAdded); err != nil {
		h.logger.Warn("Failed to publish node event",
			zap.String("nodeID", created.ID),
			zap.String("event", string(events.NodeAdded)),
			zap.Error(err),
		)
	}

	h.logger.Info("Node created",
		zap.String("nodeID", created.ID),
		zap.String("type", created.Type.String()),
	)
	return created, nil
}
