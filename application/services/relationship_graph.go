package services

import (
	"context"
	"sort"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/relations"
	"inventory-backend/pkg/errors"
	"inventory-backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLookups bounds the store calls one fan-out keeps in flight.
const maxConcurrentLookups = 16

// RelationHandler mutates node's entry for relationType with targets.
// Registry.AddRelation and Registry.RemoveRelation satisfy it.
type RelationHandler func(node *entities.Node, relationType string, targets []string) (*entities.Node, error)

// RelationshipGraph keeps typed relations symmetric across nodes and removes
// nodes together with everything they structurally own.
type RelationshipGraph struct {
	registry  *relations.Registry
	store     ports.NodeStore
	records   ports.NodeRecordStore
	gate      ports.WorkflowGate
	publisher ports.EventPublisher
	metrics   *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewRelationshipGraph creates the engine. metrics may be nil.
func NewRelationshipGraph(
	registry *relations.Registry,
	store ports.NodeStore,
	records ports.NodeRecordStore,
	gate ports.WorkflowGate,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *RelationshipGraph {
	return &RelationshipGraph{
		registry:  registry,
		store:     store,
		records:   records,
		gate:      gate,
		publisher: publisher,
		metrics:   metrics,
		tracer:    observability.Tracer(),
		logger:    logger,
	}
}

// Registry returns the relation type table the engine was built with.
func (g *RelationshipGraph) Registry() *relations.Registry {
	return g.registry
}

// Resolution is the outcome of looking one node id up. Callers decide
// whether an unresolved id is skipped or fails the operation.
type Resolution struct {
	ID   string
	Node *entities.Node
	Err  error
}

// Resolved reports whether the lookup produced a node.
func (r Resolution) Resolved() bool {
	return r.Err == nil && r.Node != nil
}

// Missing reports whether the id does not exist in the store.
func (r Resolution) Missing() bool {
	return errors.IsNotFound(r.Err)
}

// resolve looks every id up concurrently. It never fails as a whole; each
// Resolution carries its own outcome, in the order of ids.
func (g *RelationshipGraph) resolve(ctx context.Context, ids []string) []Resolution {
	results := make([]Resolution, len(ids))

	var eg errgroup.Group
	eg.SetLimit(maxConcurrentLookups)
	for i, id := range ids {
		eg.Go(func() error {
			node, err := g.store.GetByID(ctx, id)
			results[i] = Resolution{ID: id, Node: node, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// need resolves every identifier and fails on the first lookup error.
func (g *RelationshipGraph) need(ctx context.Context, identifiers []string) ([]*entities.Node, error) {
	nodes := make([]*entities.Node, len(identifiers))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentLookups)
	for i, identifier := range identifiers {
		eg.Go(func() error {
			node, err := g.store.FindByIdentifier(egCtx, identifier)
			if err != nil {
				return err
			}
			nodes[i] = node
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return nodes, nil
}

// AddRelations links the node to every target in body, on both sides.
func (g *RelationshipGraph) AddRelations(ctx context.Context, identifier string, body map[string][]string) (*entities.Node, error) {
	node, err := g.EditNodeRelations(ctx, identifier, body, g.registry.AddRelation)
	g.metrics.RecordRelationEdit("add", err)
	return node, err
}

// RemoveRelations unlinks the node from every target in body, on both sides.
func (g *RelationshipGraph) RemoveRelations(ctx context.Context, identifier string, body map[string][]string) (*entities.Node, error) {
	node, err := g.EditNodeRelations(ctx, identifier, body, g.registry.RemoveRelation)
	g.metrics.RecordRelationEdit("remove", err)
	return node, err
}

// EditNodeRelations applies handler to the node and, with the inverse type,
// to every target named in body. body maps relation type to target ids or
// identifiers; unknown types are ignored.
//
// Every target must resolve. Nothing is written until every in-memory
// mutation has succeeded, then each touched node's relation list is stored.
func (g *RelationshipGraph) EditNodeRelations(
	ctx context.Context,
	identifier string,
	body map[string][]string,
	handler RelationHandler,
) (result *entities.Node, err error) {
	ctx, span := g.tracer.Start(ctx, "RelationshipGraph.EditNodeRelations",
		trace.WithAttributes(attribute.String("node.identifier", identifier)))
	defer func() { observability.EndSpan(span, err) }()

	node, err := g.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	relationTypes := make([]string, 0, len(body))
	for relationType := range body {
		if g.registry.Known(relationType) {
			relationTypes = append(relationTypes, relationType)
		} else {
			g.logger.Debug("Ignoring unknown relation type",
				zap.String("nodeID", node.ID),
				zap.String("relationType", relationType),
			)
		}
	}
	if len(relationTypes) == 0 {
		return node, nil
	}
	sort.Strings(relationTypes)

	edit := newEdgeSet(node)
	for _, relationType := range relationTypes {
		targets, err := g.need(ctx, relations.NormalizeTargets(body[relationType]))
		if err != nil {
			return nil, err
		}
		if len(targets) == 0 {
			continue
		}
		inverse, _ := g.registry.Mapping(relationType)
		if err := edit.applyEdge(relationType, inverse, targets, handler); err != nil {
			return nil, err
		}
	}

	return g.persist(ctx, edit)
}

// persist stores the relation list of every node the edit touched and
// returns the stored source node.
func (g *RelationshipGraph) persist(ctx context.Context, edit *edgeSet) (*entities.Node, error) {
	stored := make([]*entities.Node, len(edit.order))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentLookups)
	for i, id := range edit.order {
		update := ports.RelationsUpdate(edit.nodes[id].Relations)
		eg.Go(func() error {
			node, err := g.store.UpdateByID(egCtx, id, update)
			if err != nil {
				return errors.Wrapf(err, "failed to store relations of node %s", id)
			}
			stored[i] = node
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.logger.Debug("Relations updated",
		zap.String("nodeID", edit.source.ID),
		zap.Strings("touched", edit.order),
	)
	return stored[0], nil
}

// edgeSet accumulates the in-memory side of a bulk edit. A node reached
// more than once is mutated through the same instance.
type edgeSet struct {
	source *entities.Node
	nodes  map[string]*entities.Node
	order  []string
}

func newEdgeSet(source *entities.Node) *edgeSet {
	return &edgeSet{
		source: source,
		nodes:  map[string]*entities.Node{source.ID: source},
		order:  []string{source.ID},
	}
}

func (s *edgeSet) track(node *entities.Node) *entities.Node {
	if existing, ok := s.nodes[node.ID]; ok {
		return existing
	}
	s.nodes[node.ID] = node
	s.order = append(s.order, node.ID)
	return node
}

// applyEdge applies one typed edit to both endpoints of every edge.
func (s *edgeSet) applyEdge(relationType, inverse string, targets []*entities.Node, handler RelationHandler) error {
	if _, err := handler(s.source, relationType, entities.IDs(targets)); err != nil {
		return err
	}
	for _, target := range targets {
		if target.ID == s.source.ID {
			continue
		}
		if _, err := handler(s.track(target), inverse, []string{s.source.ID}); err != nil {
			return err
		}
	}
	return nil
}
