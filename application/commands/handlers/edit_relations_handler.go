package handlers

import (
	"context"
	"fmt"

	"inventory-backend/application/commands"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/validators"
	"inventory-backend/pkg/errors"
)

// RelationEditor applies symmetric relation edits.
type RelationEditor interface {
	AddRelations(ctx context.Context, identifier string, body map[string][]string) (*entities.Node, error)
	RemoveRelations(ctx context.Context, identifier string, body map[string][]string) (*entities.Node, error)
}

// EditRelationsHandler handles the EditRelationsCommand
type EditRelationsHandler struct {
	editor    RelationEditor
	validator *validators.NodeValidator
}

// NewEditRelationsHandler creates a new relation edit handler
func NewEditRelationsHandler(editor RelationEditor, validator *validators.NodeValidator) *EditRelationsHandler {
	return &EditRelationsHandler{
		editor:    editor,
		validator: validator,
	}
}

// Handle returns the node after the edit.
func (h *EditRelationsHandler) Handle(ctx context.Context, cmd commands.EditRelationsCommand) (*entities.Node, error) {
	if err := h.validator.ValidateEdit(cmd.Relations); err != nil {
		return nil, err
	}

	switch cmd.Operation {
	case commands.RelationAdd:
		return h.editor.AddRelations(ctx, cmd.Identifier, cmd.Relations)
	case commands.RelationRemove:
		return h.editor.RemoveRelations(ctx, cmd.Identifier, cmd.Relations)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown relation operation %q", cmd.Operation))
	}
}
