package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/events"
	"inventory-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// PutEventsAPI is the slice of the EventBridge client the publisher needs.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// BreakerConfig tunes the circuit breaker in front of PutEvents.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Publisher sends node lifecycle events to an EventBridge bus. Once the
// bus keeps failing the breaker opens and publishes fail fast until it
// half-opens again.
type Publisher struct {
	client       PutEventsAPI
	eventBusName string
	source       string
	breaker      *gobreaker.CircuitBreaker
	now          func() time.Time
	logger       *zap.Logger
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client PutEventsAPI, eventBusName, source string, breaker BreakerConfig, logger *zap.Logger) *Publisher {
	if source == "" {
		source = events.SourceGateway
	}

	p := &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		now:          time.Now,
		logger:       logger,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eventbridge:" + eventBusName,
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return p
}

// PublishNodeEvent publishes one lifecycle event for node.
func (p *Publisher) PublishNodeEvent(ctx context.Context, node *entities.Node, name events.NodeEventName) error {
	event := events.NewNodeLifecycle(node, name, p.now())

	detail, err := json.Marshal(event)
	if err != nil {
		return errors.NewInternalError("failed to marshal node event").WithCause(err)
	}

	input := &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{fmt.Sprintf("node/%s", node.ID)},
		}},
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		result, err := p.client.PutEvents(ctx, input)
		if err != nil {
			return nil, err
		}
		if result.FailedEntryCount > 0 {
			for _, entry := range result.Entries {
				if entry.ErrorCode != nil {
					return nil, fmt.Errorf("event rejected: %s: %s",
						aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
				}
			}
			return nil, fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
		}
		return result, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return errors.NewUnavailableError("eventbridge").WithCause(err)
		}
		return errors.NewExternalError("eventbridge", err)
	}

	p.logger.Debug("Node event published",
		zap.String("nodeID", node.ID),
		zap.String("event", string(name)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
