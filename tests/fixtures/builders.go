package fixtures

import (
	"context"
	"time"

	"inventory-backend/application/ports"
	"inventory-backend/domain/core/entities"
	"inventory-backend/domain/core/valueobjects"
)

// NodeBuilder helps create test nodes with default values
type NodeBuilder struct {
	node entities.Node
}

func NewNodeBuilder() *NodeBuilder {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &NodeBuilder{node: entities.Node{
		ID:        valueobjects.NewNodeID().String(),
		Name:      "Test Node",
		Type:      valueobjects.NodeTypeCompute,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

func (b *NodeBuilder) WithID(id string) *NodeBuilder {
	b.node.ID = id
	return b
}

func (b *NodeBuilder) WithName(name string) *NodeBuilder {
	b.node.Name = name
	return b
}

func (b *NodeBuilder) WithType(nodeType valueobjects.NodeType) *NodeBuilder {
	b.node.Type = nodeType
	return b
}

func (b *NodeBuilder) WithIdentifiers(identifiers ...string) *NodeBuilder {
	b.node.Identifiers = identifiers
	return b
}

func (b *NodeBuilder) WithTags(tags ...string) *NodeBuilder {
	b.node.Tags = tags
	return b
}

// WithRelation appends an entry without normalizing it, so tests can
// build malformed graphs too.
func (b *NodeBuilder) WithRelation(relationType string, targets ...string) *NodeBuilder {
	b.node.Relations = append(b.node.Relations, entities.RelationEntry{
		RelationType: relationType,
		Targets:      targets,
	})
	return b
}

// Build returns a fresh copy of the node
func (b *NodeBuilder) Build() *entities.Node {
	return b.node.Clone()
}

// Seed stores every node and panics on failure.
func Seed(ctx context.Context, store ports.NodeStore, nodes ...*entities.Node) {
	for _, node := range nodes {
		if _, err := store.Create(ctx, node); err != nil {
			panic(err)
		}
	}
}

// Topology is the rack fixture used across engine tests: rack R contains
// enclosure E, E encloses compute C, and PDU P powers C.
type Topology struct {
	Rack      *entities.Node
	Enclosure *entities.Node
	Compute   *entities.Node
	PDU       *entities.Node
}

// NewRackTopology builds a symmetric rack topology.
func NewRackTopology() Topology {
	return Topology{
		Rack: NewNodeBuilder().WithID("rack-r").WithType(valueobjects.NodeTypeRack).
			WithRelation("contains", "enc-e").Build(),
		Enclosure: NewNodeBuilder().WithID("enc-e").WithType(valueobjects.NodeTypeEnclosure).
			WithRelation("containedBy", "rack-r").
			WithRelation("encloses", "compute-c").Build(),
		Compute: NewNodeBuilder().WithID("compute-c").WithType(valueobjects.NodeTypeCompute).
			WithRelation("enclosedBy", "enc-e").
			WithRelation("poweredBy", "pdu-p").Build(),
		PDU: NewNodeBuilder().WithID("pdu-p").WithType(valueobjects.NodeTypePDU).
			WithRelation("powers", "compute-c").Build(),
	}
}

// Nodes returns every node of the topology.
func (t Topology) Nodes() []*entities.Node {
	return []*entities.Node{t.Rack, t.Enclosure, t.Compute, t.PDU}
}
