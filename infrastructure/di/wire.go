//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"inventory-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideNodeValidator,
	ProvideRegistry,
	ProvideMetrics,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideBackends,
	ProvideNodeStore,
	ProvideRecordStore,
	ProvideWorkflowGate,
	ProvideEventPublisher,
	ProvideRelationshipGraph,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideRateLimiter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup closes
// the store and flushes traces.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
