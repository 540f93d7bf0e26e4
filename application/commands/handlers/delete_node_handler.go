package handlers

import (
	"context"

	"inventory-backend/application/commands"
	"inventory-backend/domain/core/entities"
	"inventory-backend/pkg/errors"

	"go.uber.org/zap"
)

// NodeRemover removes a node together with everything it owns.
type NodeRemover interface {
	RemoveNodeByID(ctx context.Context, identifier string) (*entities.Node, error)
}

// DeleteNodeHandler handles the DeleteNodeCommand
type DeleteNodeHandler struct {
	remover NodeRemover
	logger  *zap.Logger
}

// NewDeleteNodeHandler creates a new delete node handler
func NewDeleteNodeHandler(remover NodeRemover, logger *zap.Logger) *DeleteNodeHandler {
	return &DeleteNodeHandler{
		remover: remover,
		logger:  logger,
	}
}

// Handle removes the node and returns it as it was before deletion.
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd commands.DeleteNodeCommand) (*entities.Node, error) {
	return h.remover.RemoveNodeByID(ctx, cmd.Identifier)
}

// BulkDeleteNodesHandler removes nodes one cascade at a time. A failure on
// one identifier is reported and the rest still run.
type BulkDeleteNodesHandler struct {
	remover NodeRemover
	logger  *zap.Logger
}

// NewBulkDeleteNodesHandler creates a new bulk delete handler
func NewBulkDeleteNodesHandler(remover NodeRemover, logger *zap.Logger) *BulkDeleteNodesHandler {
	return &BulkDeleteNodesHandler{
		remover: remover,
		logger:  logger,
	}
}

// Handle executes the bulk delete command
func (h *BulkDeleteNodesHandler) Handle(ctx context.Context, cmd commands.BulkDeleteNodesCommand) (*commands.BulkDeleteNodesResult, error) {
	result := &commands.BulkDeleteNodesResult{
		DeletedIDs: make([]string, 0, len(cmd.Identifiers)),
		Errors:     make(map[string]string),
	}

	seen := make(map[string]bool, len(cmd.Identifiers))
	for _, identifier := range cmd.Identifiers {
		if seen[identifier] {
			continue
		}
		seen[identifier] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		removed, err := h.remover.RemoveNodeByID(ctx, identifier)
		if err != nil {
			result.FailedIDs = append(result.FailedIDs, identifier)
			result.Errors[identifier] = message(err)
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, removed.ID)
	}
	result.DeletedCount = len(result.DeletedIDs)

	h.logger.Info("Bulk delete completed",
		zap.Int("requested", len(cmd.Identifiers)),
		zap.Int("deleted", result.DeletedCount),
		zap.Int("failed", len(result.FailedIDs)),
	)
	return result, nil
}

func message(err error) string {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
