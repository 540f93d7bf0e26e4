package handlers

import (
	"net/http"

	"inventory-backend/application/commands"
	"inventory-backend/application/commands/bus"
	"inventory-backend/application/queries"
	querybus "inventory-backend/application/queries/bus"
	"inventory-backend/domain/core/entities"
	"inventory-backend/pkg/common"
	apperrors "inventory-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RelationHandler serves a node's typed relations. Edits take a body of
// the form {"<relationType>": ["<id or identifier>", ...]}.
type RelationHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewRelationHandler creates a relation handler
func NewRelationHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *RelationHandler {
	return &RelationHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RelationsResponse is the body of GET /nodes/{identifier}/relations
type RelationsResponse struct {
	Relations []entities.RelationEntry `json:"relations"`
}

// GetRelations handles GET /nodes/{identifier}/relations
func (h *RelationHandler) GetRelations(w http.ResponseWriter, r *http.Request) {
	entries, err := querybus.AskAs[[]entities.RelationEntry](r.Context(), h.queryBus, queries.GetRelationsQuery{
		Identifier: chi.URLParam(r, "identifier"),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, RelationsResponse{Relations: entries})
}

// AddRelations handles PUT /nodes/{identifier}/relations
func (h *RelationHandler) AddRelations(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, commands.RelationAdd)
}

// RemoveRelations handles DELETE /nodes/{identifier}/relations
func (h *RelationHandler) RemoveRelations(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, commands.RelationRemove)
}

func (h *RelationHandler) edit(w http.ResponseWriter, r *http.Request, operation commands.RelationOperation) {
	var body map[string][]string
	if err := common.ParseJSONBody(w, r, &body, common.DefaultMaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	node, err := bus.SendAs[*entities.Node](r.Context(), h.commandBus, commands.EditRelationsCommand{
		Identifier: chi.URLParam(r, "identifier"),
		Operation:  operation,
		Relations:  body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, node)
}

func (h *RelationHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
