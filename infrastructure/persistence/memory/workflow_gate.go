package memory

import (
	"context"
	"sync"

	"inventory-backend/application/ports"
)

// WorkflowGate reports workflows registered with SetActive.
type WorkflowGate struct {
	mu     sync.RWMutex
	active map[string]ports.ActiveGraph
}

// NewWorkflowGate creates a gate with no active workflows.
func NewWorkflowGate() *WorkflowGate {
	return &WorkflowGate{active: make(map[string]ports.ActiveGraph)}
}

// SetActive marks graph as running against graph.Target.
func (g *WorkflowGate) SetActive(graph ports.ActiveGraph) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active[graph.Target] = graph
}

// Finish clears the active workflow for nodeID.
func (g *WorkflowGate) Finish(nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, nodeID)
}

// FindActiveGraphForTarget returns the graph registered for nodeID, or nil.
func (g *WorkflowGate) FindActiveGraphForTarget(ctx context.Context, nodeID string) (*ports.ActiveGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	graph, ok := g.active[nodeID]
	if !ok {
		return nil, nil
	}
	return &graph, nil
}
