package di

import (
	"context"
	"fmt"
	"net/http"

	"inventory-backend/application/commands"
	"inventory-backend/application/commands/bus"
	commandhandlers "inventory-backend/application/commands/handlers"
	"inventory-backend/application/ports"
	"inventory-backend/application/queries"
	querybus "inventory-backend/application/queries/bus"
	queryhandlers "inventory-backend/application/queries/handlers"
	"inventory-backend/application/services"
	domainconfig "inventory-backend/domain/config"
	"inventory-backend/domain/core/validators"
	"inventory-backend/domain/relations"
	"inventory-backend/infrastructure/config"
	"inventory-backend/infrastructure/messaging/eventbridge"
	memorybus "inventory-backend/infrastructure/messaging/memory"
	"inventory-backend/infrastructure/persistence/dynamodb"
	"inventory-backend/infrastructure/persistence/memory"
	"inventory-backend/infrastructure/persistence/postgres"
	"inventory-backend/interfaces/http/rest"
	"inventory-backend/pkg/auth"
	"inventory-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// Backends groups the storage adapters selected by STORE_DRIVER.
type Backends struct {
	Store   ports.NodeStore
	Records ports.NodeRecordStore
	Gate    ports.WorkflowGate
	// Ready probes the backing store; nil when there is nothing to probe.
	Ready func(ctx context.Context) error
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideDomainConfig returns the inventory rules
func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideNodeValidator creates the node validator
func ProvideNodeValidator(rules *domainconfig.DomainConfig) *validators.NodeValidator {
	return validators.NewNodeValidator(rules)
}

// ProvideRegistry loads the relation types, from RELATION_TYPES_FILE when set
func ProvideRegistry(cfg *config.Config, logger *zap.Logger) (*relations.Registry, error) {
	registry, err := relations.LoadRegistryFile(cfg.RelationTypesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Relation types loaded",
		zap.String("file", cfg.RelationTypesFile),
		zap.Strings("types", registry.Names()),
	)
	return registry, nil
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are off
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("inventory")
}

// ProvideTracing installs the OTLP tracer provider when tracing is enabled.
// The cleanup flushes pending spans.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.LambdaFunctionName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideBackends opens the store selected by STORE_DRIVER
func ProvideBackends(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Backends, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return &Backends{
			Store:   memory.NewNodeStore(),
			Records: memory.NewRecordStore(),
			Gate:    memory.NewWorkflowGate(),
		}, func() {}, nil

	case config.StoreDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg)
		return &Backends{
			Store:   dynamodb.NewNodeStore(client, cfg.DynamoDBTable, cfg.NodeIndexName, logger),
			Records: dynamodb.NewRecordStore(client, cfg.DynamoDBTable, logger),
			Gate:    dynamodb.NewWorkflowGate(client, cfg.WorkflowTable, cfg.WorkflowTargetIndex, logger),
			Ready: func(ctx context.Context) error {
				_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
					TableName: aws.String(cfg.DynamoDBTable),
				})
				return err
			},
		}, func() {}, nil

	case config.StorePostgres:
		pool := postgres.DefaultPoolConfig()
		pool.MaxOpenConns = cfg.MaxOpenConns
		pool.MaxIdleConns = cfg.MaxIdleConns
		pool.ConnMaxLifetime = cfg.ConnMaxLifetime

		db, err := postgres.Open(ctx, cfg.DatabaseURL, pool, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.MigrationsAuto {
			if err := db.RunMigrations(); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close database", zap.Error(err))
			}
		}
		return &Backends{
			Store:   postgres.NewNodeStore(db.DB, logger),
			Records: postgres.NewRecordStore(db.DB, logger),
			Gate:    postgres.NewWorkflowGate(db.DB),
			Ready:   db.HealthCheck,
		}, cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// ProvideNodeStore exposes the selected node store
func ProvideNodeStore(b *Backends) ports.NodeStore {
	return b.Store
}

// ProvideRecordStore exposes the selected record store
func ProvideRecordStore(b *Backends) ports.NodeRecordStore {
	return b.Records
}

// ProvideWorkflowGate exposes the selected workflow gate
func ProvideWorkflowGate(b *Backends) ports.WorkflowGate {
	return b.Gate
}

// ProvideEventPublisher publishes to EventBridge, or keeps events in memory
// when running on the in-memory store
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.StoreDriver == config.StoreMemory {
		return memorybus.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(
		awseventbridge.NewFromConfig(awsCfg),
		cfg.EventBusName,
		cfg.EventSource,
		eventbridge.DefaultBreakerConfig(),
		logger,
	)
}

// ProvideRelationshipGraph creates the relation engine. It takes the tracer
// provider so spans are created on the installed provider.
func ProvideRelationshipGraph(
	registry *relations.Registry,
	store ports.NodeStore,
	records ports.NodeRecordStore,
	gate ports.WorkflowGate,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	_ *observability.TracerProvider,
	logger *zap.Logger,
) *services.RelationshipGraph {
	return services.NewRelationshipGraph(registry, store, records, gate, publisher, metrics, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	store ports.NodeStore,
	registry *relations.Registry,
	validator *validators.NodeValidator,
	graph *services.RelationshipGraph,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))

	createNode := commandhandlers.NewCreateNodeHandler(store, registry, validator, publisher, logger)
	updateNode := commandhandlers.NewUpdateNodeHandler(store, validator, logger)
	deleteNode := commandhandlers.NewDeleteNodeHandler(graph, logger)
	bulkDelete := commandhandlers.NewBulkDeleteNodesHandler(graph, logger)
	editRelations := commandhandlers.NewEditRelationsHandler(graph, validator)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateNodeCommand{}, bus.Typed(createNode.Handle)},
		{commands.UpdateNodeCommand{}, bus.Typed(updateNode.Handle)},
		{commands.DeleteNodeCommand{}, bus.Typed(deleteNode.Handle)},
		{commands.BulkDeleteNodesCommand{}, bus.Typed(bulkDelete.Handle)},
		{commands.EditRelationsCommand{}, bus.Typed(editRelations.Handle)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(store ports.NodeStore, rules *domainconfig.DomainConfig, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(logger)
	nodeQueries := queryhandlers.NewNodeQueryHandler(store, rules)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetNodeQuery{}, querybus.Typed(nodeQueries.GetNode)},
		{queries.ListNodesQuery{}, querybus.Typed(nodeQueries.ListNodes)},
		{queries.GetRelationsQuery{}, querybus.Typed(nodeQueries.GetRelations)},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideJWTValidator creates the bearer-token validator, or nil when
// authentication is off
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.EnableAuth {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRateLimiter creates the per-client limiter, or nil when disabled
func ProvideRateLimiter(cfg *config.Config) *auth.KeyedLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return auth.NewKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

// ProvideHTTPHandler builds the chi router for cmd/api and cmd/lambda
func ProvideHTTPHandler(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.JWTValidator,
	limiter *auth.KeyedLimiter,
	metrics *observability.Collector,
	backends *Backends,
	logger *zap.Logger,
) http.Handler {
	opts := rest.Options{
		Validator: validator,
		Limiter:   limiter,
		Metrics:   metrics,
		Readiness: backends.Ready,
		Debug:     cfg.IsDevelopment(),
	}
	if cfg.EnableCORS {
		opts.CORSOrigins = cfg.CORSOrigins
	}
	return rest.NewRouter(commandBus, queryBus, opts, logger).Setup()
}
