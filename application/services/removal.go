package services

import (
	"context"
	"sync"
	"sync/atomic"

	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/events"
	"inventory-backend/pkg/errors"
	"inventory-backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// removalPlan is one node of a would-be cascade, built before any write.
type removalPlan struct {
	node       *entities.Node
	children   []*removalPlan
	neighbours []neighbour
}

// neighbour is an associated node whose inverse entry must lose the
// removed node's id.
type neighbour struct {
	id           string
	relationType string
}

// cascade tracks the nodes claimed by one removal so cycles and diamonds
// in the stored graph are walked once.
type cascade struct {
	mu        sync.Mutex
	claimed   map[string]bool
	destroyed atomic.Int64
}

func newCascade(rootID string) *cascade {
	return &cascade{claimed: map[string]bool{rootID: true}}
}

func (c *cascade) claim(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed[id] {
		return false
	}
	c.claimed[id] = true
	return true
}

func (c *cascade) includes(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claimed[id]
}

// RemoveNodeByID resolves identifier and removes that node. A node that is
// already gone fails NotFound.
func (g *RelationshipGraph) RemoveNodeByID(ctx context.Context, identifier string) (*entities.Node, error) {
	node, err := g.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return g.RemoveNode(ctx, node, "")
}

// RemoveNode destroys node and, transitively, every node it owns through a
// component relation. sourceRelationType, when set, is the entry that led
// here from an owner and is not walked.
//
// The whole cascade is planned first: every workflow check and every child
// lookup runs before the first destructive write, so a refused removal
// changes nothing. Children are destroyed before their owner, and each
// node's workflow check is repeated right before its own destroy. The
// returned node is the state before deletion.
func (g *RelationshipGraph) RemoveNode(ctx context.Context, node *entities.Node, sourceRelationType string) (removed *entities.Node, err error) {
	ctx, span := g.tracer.Start(ctx, "RelationshipGraph.RemoveNode",
		trace.WithAttributes(attribute.String("node.id", node.ID)))
	defer func() { observability.EndSpan(span, err) }()

	snapshot := node.Clone()
	run := newCascade(snapshot.ID)

	plan, err := g.planRemoval(ctx, run, snapshot, sourceRelationType)
	if err != nil {
		g.metrics.RecordRemoval(0, errors.IsConflict(err))
		return nil, err
	}

	err = g.executeRemoval(ctx, run, plan)
	destroyed := int(run.destroyed.Load())
	span.SetAttributes(attribute.Int("cascade.destroyed", destroyed))
	g.metrics.RecordRemoval(destroyed, errors.IsConflict(err))
	if err != nil {
		g.logger.Error("Node removal stopped part way",
			zap.String("nodeID", snapshot.ID),
			zap.Int("destroyed", destroyed),
			zap.Error(err),
		)
		return nil, err
	}

	g.logger.Info("Node removed",
		zap.String("nodeID", snapshot.ID),
		zap.Int("destroyed", destroyed),
	)
	return snapshot, nil
}

func (g *RelationshipGraph) planRemoval(ctx context.Context, run *cascade, root *entities.Node, sourceRelationType string) (*removalPlan, error) {
	if err := g.checkWorkflow(ctx, root.ID); err != nil {
		return nil, err
	}
	return g.planNode(ctx, run, root, sourceRelationType)
}

// planNode expects node's own workflow check to have passed.
func (g *RelationshipGraph) planNode(ctx context.Context, run *cascade, node *entities.Node, sourceRelationType string) (*removalPlan, error) {
	plan := &removalPlan{node: node}

	for _, entry := range node.Relations {
		if entry.RelationType == sourceRelationType {
			continue
		}
		descriptor, ok := g.registry.Lookup(entry.RelationType)
		if !ok {
			g.logger.Warn("Skipping unknown relation type during removal",
				zap.String("nodeID", node.ID),
				zap.String("relationType", entry.RelationType),
			)
			continue
		}

		if !descriptor.Cascades() {
			for _, target := range entry.Targets {
				plan.neighbours = append(plan.neighbours, neighbour{id: target, relationType: descriptor.Mapping})
			}
			continue
		}

		children, err := g.resolveChildren(ctx, run, node, entry)
		if err != nil {
			return nil, err
		}
		if err := g.checkWorkflows(ctx, entities.IDs(children)); err != nil {
			return nil, err
		}

		childPlans := make([]*removalPlan, len(children))
		eg, egCtx := errgroup.WithContext(ctx)
		for i, child := range children {
			eg.Go(func() error {
				childPlan, err := g.planNode(egCtx, run, child, descriptor.Mapping)
				if err != nil {
					return err
				}
				childPlans[i] = childPlan
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		plan.children = append(plan.children, childPlans...)
	}

	return plan, nil
}

// resolveChildren resolves the targets of an owning component entry.
// Missing children are dropped with a warning; any other lookup failure
// aborts, since an unconfirmed child could be left orphaned.
func (g *RelationshipGraph) resolveChildren(ctx context.Context, run *cascade, owner *entities.Node, entry entities.RelationEntry) ([]*entities.Node, error) {
	var children []*entities.Node
	for _, res := range g.resolve(ctx, entry.Targets) {
		switch {
		case res.Resolved():
		case res.Missing():
			g.logger.Warn("Dropping missing component target",
				zap.String("nodeID", owner.ID),
				zap.String("relationType", entry.RelationType),
				zap.String("targetID", res.ID),
			)
			continue
		default:
			return nil, errors.Wrapf(res.Err, "failed to resolve %s target %s of node %s", entry.RelationType, res.ID, owner.ID)
		}

		if !run.claim(res.ID) {
			g.logger.Warn("Component target already in cascade",
				zap.String("nodeID", owner.ID),
				zap.String("targetID", res.ID),
			)
			continue
		}
		children = append(children, res.Node)
	}
	return children, nil
}

// executeRemoval destroys plan depth-first: children first, siblings
// concurrently. The node's workflow check is then repeated before its
// neighbours are detached and the node itself is destroyed.
func (g *RelationshipGraph) executeRemoval(ctx context.Context, run *cascade, plan *removalPlan) error {
	if len(plan.children) > 0 {
		eg, egCtx := errgroup.WithContext(ctx)
		for _, child := range plan.children {
			eg.Go(func() error {
				return g.executeRemoval(egCtx, run, child)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}

	if err := g.checkWorkflow(ctx, plan.node.ID); err != nil {
		return err
	}
	if err := g.detachNeighbours(ctx, run, plan); err != nil {
		return err
	}
	if err := g.destroy(ctx, plan.node); err != nil {
		return err
	}
	run.destroyed.Add(1)

	g.publish(ctx, plan.node, events.NodeRemoved)
	return nil
}

// detachNeighbours strips the node from each associated node's inverse
// entry and drops that entry once it is empty. Lookup failures are logged
// and skipped.
func (g *RelationshipGraph) detachNeighbours(ctx context.Context, run *cascade, plan *removalPlan) error {
	var pending []neighbour
	for _, n := range plan.neighbours {
		if run.includes(n.id) {
			continue
		}
		pending = append(pending, n)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i, n := range pending {
		ids[i] = n.id
	}
	resolutions := g.resolve(ctx, ids)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentLookups)
	for i, res := range resolutions {
		if !res.Resolved() {
			g.logger.Warn("Skipping unresolvable neighbour during removal",
				zap.String("nodeID", plan.node.ID),
				zap.String("neighbourID", res.ID),
				zap.Error(res.Err),
			)
			continue
		}
		relationType := pending[i].relationType
		eg.Go(func() error {
			return g.detach(egCtx, res.Node, relationType, plan.node.ID)
		})
	}
	return eg.Wait()
}

func (g *RelationshipGraph) detach(ctx context.Context, neighbour *entities.Node, relationType, removedID string) error {
	removed := []string{removedID}

	targets, hasTargets := g.registry.TargetsToBeRemoved(neighbour, relationType, removed)
	entry, hasEntry := g.registry.RelationsToBeRemoved(neighbour, relationType, removed)

	if hasTargets {
		if err := g.store.RemoveListItemsByPath(ctx, neighbour.ID, targets); err != nil {
			return g.detachError(err, neighbour.ID, removedID)
		}
	}
	if hasEntry {
		if err := g.store.RemoveListItemsByPath(ctx, neighbour.ID, entry); err != nil {
			return g.detachError(err, neighbour.ID, removedID)
		}
	}
	return nil
}

func (g *RelationshipGraph) detachError(err error, neighbourID, removedID string) error {
	if errors.IsNotFound(err) {
		g.logger.Warn("Neighbour vanished during removal",
			zap.String("nodeID", removedID),
			zap.String("neighbourID", neighbourID),
		)
		return nil
	}
	return errors.Wrapf(err, "failed to detach node %s from %s", removedID, neighbourID)
}

// destroy deletes the node document and the records that hang off it.
// Lookup rows are kept with their node reference cleared.
func (g *RelationshipGraph) destroy(ctx context.Context, node *entities.Node) error {
	if err := g.store.Destroy(ctx, node.ID); err != nil {
		return errors.Wrapf(err, "failed to destroy node %s", node.ID)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.records.DeleteCatalogs(egCtx, node.ID) })
	eg.Go(func() error { return g.records.DeleteWorkItems(egCtx, node.ID) })
	eg.Go(func() error { return g.records.ClearLookups(egCtx, node.ID) })
	if err := eg.Wait(); err != nil {
		return errors.Wrapf(err, "failed to clean up records of node %s", node.ID)
	}

	g.logger.Debug("Node destroyed", zap.String("nodeID", node.ID))
	return nil
}

// checkWorkflow fails with a conflict naming nodeID when a workflow targets it.
func (g *RelationshipGraph) checkWorkflow(ctx context.Context, nodeID string) error {
	graph, err := g.gate.FindActiveGraphForTarget(ctx, nodeID)
	if err != nil {
		return errors.Wrapf(err, "failed to check workflows for node %s", nodeID)
	}
	if graph != nil {
		g.logger.Info("Removal refused by active workflow",
			zap.String("nodeID", nodeID),
			zap.String("graphID", graph.ID),
			zap.String("graphName", graph.Name),
		)
		return errors.NewActiveWorkflowError(nodeID, graph.ID)
	}
	return nil
}

func (g *RelationshipGraph) checkWorkflows(ctx context.Context, nodeIDs []string) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentLookups)
	for _, id := range nodeIDs {
		eg.Go(func() error { return g.checkWorkflow(egCtx, id) })
	}
	return eg.Wait()
}

// publish is best-effort: a failed event never fails the operation.
func (g *RelationshipGraph) publish(ctx context.Context, node *entities.Node, name events.NodeEventName) {
	err := g.publisher.PublishNodeEvent(ctx, node, name)
	g.metrics.RecordEventPublish(string(name), err)
	if err != nil {
		g.logger.Warn("Failed to publish node event",
			zap.String("nodeID", node.ID),
			zap.String("event", string(name)),
			zap.Error(err),
		)
	}
}
