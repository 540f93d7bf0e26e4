package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	Target string
}

func (c pingCommand) Validate() error {
	if c.Target == "" {
		return errors.New("target is required")
	}
	return nil
}

func TestCommandBus_SendAs(t *testing.T) {
	// Arrange
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, b.Register(pingCommand{}, Typed(func(ctx context.Context, cmd pingCommand) (string, error) {
		return "pong " + cmd.Target, nil
	})))

	// Act
	result, err := SendAs[string](context.Background(), b, pingCommand{Target: "n-1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "pong n-1", result)
}

func TestCommandBus_ValidationRunsFirst(t *testing.T) {
	b := NewCommandBus()
	called := false
	require.NoError(t, b.Register(pingCommand{}, Typed(func(ctx context.Context, cmd pingCommand) (string, error) {
		called = true
		return "", nil
	})))

	_, err := b.Send(context.Background(), pingCommand{})

	assert.EqualError(t, err, "target is required")
	assert.False(t, called)
}

func TestCommandBus_HandlerErrorUnwrapped(t *testing.T) {
	sentinel := errors.New("boom")
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, b.Register(pingCommand{}, Typed(func(ctx context.Context, cmd pingCommand) (string, error) {
		return "", sentinel
	})))

	_, err := b.Send(context.Background(), pingCommand{Target: "x"})

	assert.Same(t, sentinel, err)
}

func TestCommandBus_Registration(t *testing.T) {
	b := NewCommandBus()

	_, err := b.Send(context.Background(), pingCommand{Target: "x"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	handler := Typed(func(ctx context.Context, cmd pingCommand) (string, error) { return "", nil })
	require.NoError(t, b.Register(pingCommand{}, handler))
	assert.Error(t, b.Register(pingCommand{}, handler))
}

func TestPipeline_OrderOutermostFirst(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	b := NewCommandBus(trace("outer"), trace("inner"))
	require.NoError(t, b.Register(pingCommand{}, Typed(func(ctx context.Context, cmd pingCommand) (string, error) {
		order = append(order, "handler")
		return "", nil
	})))

	_, err := b.Send(context.Background(), pingCommand{Target: "x"})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
