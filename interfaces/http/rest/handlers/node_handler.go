package handlers

import (
	"net/http"
	"strconv"

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

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ListNodesResponse is the body of GET /nodes
type ListNodesResponse struct {
	Nodes []*entities.Node `json:"nodes"`
	Count int              `json:"count"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateNodeCommand
	if err := common.ParseJSONBody(w, r, &cmd, common.DefaultMaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	node, err := bus.SendAs[*entities.Node](r.Context(), h.commandBus, cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v2/nodes/"+node.ID)
	h.respondJSON(w, http.StatusCreated, node)
}

// GetNode handles GET /nodes/{identifier}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := querybus.AskAs[*entities.Node](r.Context(), h.queryBus, queries.GetNodeQuery{
		Identifier: chi.URLParam(r, "identifier"),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, node)
}

// ListNodes handles GET /nodes?type=&tag=&limit=
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("limit must be an integer"))
			return
		}
		limit = parsed
	}

	nodes, err := querybus.AskAs[[]*entities.Node](r.Context(), h.queryBus, queries.ListNodesQuery{
		Type:  params.Get("type"),
		Tag:   params.Get("tag"),
		Limit: limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []*entities.Node{}
	}

	h.respondJSON(w, http.StatusOK, ListNodesResponse{Nodes: nodes, Count: len(nodes)})
}

// UpdateNode handles PATCH /nodes/{identifier}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.UpdateNodeCommand
	if err := common.ParseJSONBody(w, r, &cmd, common.DefaultMaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	cmd.Identifier = chi.URLParam(r, "identifier")

	node, err := bus.SendAs[*entities.Node](r.Context(), h.commandBus, cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /nodes/{identifier}. The response carries the
// node as it was before removal.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	node, err := bus.SendAs[*entities.Node](r.Context(), h.commandBus, commands.DeleteNodeCommand{
		Identifier: identifier,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("Node removed",
		zap.String("identifier", identifier),
		zap.String("nodeID", node.ID),
	)
	h.respondJSON(w, http.StatusOK, node)
}

// BulkDeleteNodes handles POST /nodes/bulk-delete
func (h *NodeHandler) BulkDeleteNodes(w http.ResponseWriter, r *http.Request) {
	var cmd commands.BulkDeleteNodesCommand
	if err := common.ParseJSONBody(w, r, &cmd, common.DefaultMaxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := bus.SendAs[*commands.BulkDeleteNodesResult](r.Context(), h.commandBus, cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.FailedIDs) > 0 {
		status = http.StatusMultiStatus
	}
	h.respondJSON(w, status, result)
}

func (h *NodeHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
