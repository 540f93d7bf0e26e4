// Package memory is an in-process event sink. It backs local runs without
// an event bus and lets tests assert on published events in order.
package memory

import (
	"context"
	"sync"
	"time"

	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/events"

	"go.uber.org/zap"
)

// Publisher records every node event it receives.
type Publisher struct {
	mu     sync.Mutex
	events []events.NodeLifecycle
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) PublishNodeEvent(ctx context.Context, node *entities.Node, name events.NodeEventName) error {
	event := events.NewNodeLifecycle(node, name, time.Now())

	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()

	p.logger.Info("Node event",
		zap.String("event", event.GetEventType()),
		zap.String("nodeID", node.ID),
	)
	return nil
}

// Events returns the recorded events in publish order.
func (p *Publisher) Events() []events.NodeLifecycle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.NodeLifecycle(nil), p.events...)
}

// NodeIDs returns the ids of recorded events with the given name, in order.
func (p *Publisher) NodeIDs(name events.NodeEventName) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for _, event := range p.events {
		if event.Action == name {
			ids = append(ids, event.NodeID)
		}
	}
	return ids
}
