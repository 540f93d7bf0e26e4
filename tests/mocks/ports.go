package mocks

import (
	"context"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/events"
	"inventory-backend/domain/relations"

	"github.com/stretchr/testify/mock"
)

// MockNodeStore is a testify mock of ports.NodeStore
type MockNodeStore struct {
	mock.Mock
}

func (m *MockNodeStore) GetByID(ctx context.Context, id string) (*entities.Node, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Node), args.Error(1)
}

func (m *MockNodeStore) FindByIdentifier(ctx context.Context, identifier string) (*entities.Node, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Node), args.Error(1)
}

func (m *MockNodeStore) Query(ctx context.Context, query ports.NodeQuery) ([]*entities.Node, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Node), args.Error(1)
}

func (m *MockNodeStore) Create(ctx context.Context, node *entities.Node) (*entities.Node, error) {
	args := m.Called(ctx, node)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Node), args.Error(1)
}

func (m *MockNodeStore) UpdateByID(ctx context.Context, id string, update ports.NodeUpdate) (*entities.Node, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Node), args.Error(1)
}

func (m *MockNodeStore) RemoveListItemsByPath(ctx context.Context, id string, pull relations.PullInstruction) error {
	args := m.Called(ctx, id, pull)
	return args.Error(0)
}

func (m *MockNodeStore) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNodeRecordStore is a testify mock of ports.NodeRecordStore
type MockNodeRecordStore struct {
	mock.Mock
}

func (m *MockNodeRecordStore) DeleteCatalogs(ctx context.Context, nodeID string) error {
	return m.Called(ctx, nodeID).Error(0)
}

func (m *MockNodeRecordStore) DeleteWorkItems(ctx context.Context, nodeID string) error {
	return m.Called(ctx, nodeID).Error(0)
}

func (m *MockNodeRecordStore) ClearLookups(ctx context.Context, nodeID string) error {
	return m.Called(ctx, nodeID).Error(0)
}

// MockWorkflowGate is a testify mock of ports.WorkflowGate
type MockWorkflowGate struct {
	mock.Mock
}

func (m *MockWorkflowGate) FindActiveGraphForTarget(ctx context.Context, nodeID string) (*ports.ActiveGraph, error) {
	args := m.Called(ctx, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ActiveGraph), args.Error(1)
}

// MockEventPublisher is a testify mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishNodeEvent(ctx context.Context, node *entities.Node, name events.NodeEventName) error {
	return m.Called(ctx, node, name).Error(0)
}
