package di

import (
	"net/http"

	"inventory-backend/application/commands/bus"
	"inventory-backend/application/ports"
	querybus "inventory-backend/application/queries/bus"
	"inventory-backend/application/services"
	"inventory-backend/infrastructure/config"
	"inventory-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Backends   *Backends
	Publisher  ports.EventPublisher
	Graph      *services.RelationshipGraph
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Handler    http.Handler
}
