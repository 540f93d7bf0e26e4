package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"inventory-backend/application/commands"
	"inventory-backend/application/commands/bus"
	"inventory-backend/application/queries"
	querybus "inventory-backend/application/queries/bus"
	"inventory-backend/domain/core/entities"
	"inventory-backend/infrastructure/config"
	memorybus "inventory-backend/infrastructure/messaging/memory"
	"inventory-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:   "test",
		StoreDriver:   config.StoreMemory,
		AWSRegion:     "us-west-2",
		LogLevel:      "error",
		EnableMetrics: true,
	}
}

func TestInitializeContainer_Memory(t *testing.T) {
	// Arrange
	ctx := context.Background()

	// Act
	container, cleanup, err := InitializeContainer(ctx, memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	// Assert
	assert.IsType(t, &memory.NodeStore{}, container.Backends.Store)
	assert.IsType(t, &memorybus.Publisher{}, container.Publisher)
	assert.NotNil(t, container.Metrics)
	assert.Nil(t, container.Tracing)

	created, err := bus.SendAs[*entities.Node](ctx, container.CommandBus, commands.CreateNodeCommand{
		ID: "rack-r", Name: "Rack R", Type: "rack",
	})
	require.NoError(t, err)
	assert.Equal(t, "rack-r", created.ID)

	fetched, err := querybus.AskAs[*entities.Node](ctx, container.QueryBus, queries.GetNodeQuery{Identifier: "rack-r"})
	require.NoError(t, err)
	assert.Equal(t, "Rack R", fetched.Name)

	rec := httptest.NewRecorder()
	container.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_RegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relation-types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
relationTypes:
  - name: feeds
    mapping: fedBy
    class: association
  - name: fedBy
    mapping: feeds
    class: association
    direction: inverse
`), 0o600))
	cfg := memoryConfig()
	cfg.RelationTypesFile = path

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.ElementsMatch(t, []string{"feeds", "fedBy"}, container.Graph.Registry().Names())
}

func TestInitializeContainer_BadLogLevel(t *testing.T) {
	cfg := memoryConfig()
	cfg.LogLevel = "loud"

	_, _, err := InitializeContainer(context.Background(), cfg)

	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestProvideBackends_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "mongo"

	_, _, err := InitializeContainer(context.Background(), cfg)

	assert.ErrorContains(t, err, "unknown store driver")
}

func TestProvideOptionalComponents(t *testing.T) {
	cfg := memoryConfig()

	validator, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.Nil(t, validator)
	assert.Nil(t, ProvideRateLimiter(cfg))

	cfg.EnableAuth = true
	cfg.JWTSecret = "s3cret"
	cfg.RateLimitRPS = 5
	cfg.RateLimitBurst = 10
	cfg.EnableMetrics = false

	validator, err = ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, validator)
	assert.NotNil(t, ProvideRateLimiter(cfg))
	assert.Nil(t, ProvideMetrics(cfg))
}
