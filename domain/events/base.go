package events

import (
	"time"

	"inventory-backend/domain/core/entities"
)

// SourceGateway is the event source name used on the bus.
const SourceGateway = "inventory.gateway"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// NodeEventName is the lifecycle action carried by a node event.
type NodeEventName string

const (
	NodeAdded   NodeEventName = "added"
	NodeRemoved NodeEventName = "removed"
)

// NodeLifecycle is published when a node is added to or removed from the inventory.
type NodeLifecycle struct {
	BaseEvent
	Action   NodeEventName  `json:"action"`
	NodeID   string         `json:"node_id"`
	NodeType string         `json:"node_type"`
	Node     *entities.Node `json:"node"`
}

// NewNodeLifecycle builds the event for node and action.
// The node is cloned so later mutation does not leak into the payload.
func NewNodeLifecycle(node *entities.Node, action NodeEventName, timestamp time.Time) NodeLifecycle {
	return NodeLifecycle{
		BaseEvent: BaseEvent{
			AggregateID: node.ID,
			EventType:   "node." + string(action),
			Timestamp:   timestamp,
			Version:     1,
		},
		Action:   action,
		NodeID:   node.ID,
		NodeType: string(node.Type),
		Node:     node.Clone(),
	}
}
