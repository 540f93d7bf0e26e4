package handlers

import (
	"context"

	"inventory-backend/application/commands"
	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/validators"
	"inventory-backend/domain/core/valueobjects"
	"inventory-backend/pkg/errors"

	"go.uber.org/zap"
)

// UpdateNodeHandler handles the UpdateNodeCommand
type UpdateNodeHandler struct {
	store     ports.NodeStore
	validator *validators.NodeValidator
	logger    *zap.Logger
}

// NewUpdateNodeHandler creates a new update node handler
func NewUpdateNodeHandler(store ports.NodeStore, validator *validators.NodeValidator, logger *zap.Logger) *UpdateNodeHandler {
	return &UpdateNodeHandler{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Handle applies the patch and returns the stored node.
func (h *UpdateNodeHandler) Handle(ctx context.Context, cmd commands.UpdateNodeCommand) (*entities.Node, error) {
	node, err := h.store.FindByIdentifier(ctx, cmd.Identifier)
	if err != nil {
		return nil, err
	}

	update := ports.NodeUpdate{
		Name:        cmd.Name,
		Identifiers: cmd.Identifiers,
		Tags:        cmd.Tags,
	}
	if cmd.Type != nil {
		nodeType, err := valueobjects.ParseNodeType(*cmd.Type)
		if err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
		update.Type = &nodeType
	}

	// validate the node as it will look after the patch
	patched := node.Clone()
	update.Apply(patched)
	if err := h.validator.ValidateNode(patched); err != nil {
		return nil, err
	}

	updated, err := h.store.UpdateByID(ctx, node.ID, update)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Node updated", zap.String("nodeID", node.ID))
	return updated, nil
}
