package entities

import (
	"time"

	"inventory-backend/domain/core/valueobjects"
)

// Node is the inventory record for one piece of physical or logical infrastructure.
//
// Relations is the node's side of the relationship graph. A nil slice is the
// same as an empty one.
type Node struct {
	ID          string                `json:"id" dynamodbav:"NodeID"`
	Name        string                `json:"name" dynamodbav:"Name"`
	Type        valueobjects.NodeType `json:"type" dynamodbav:"Type"`
	Identifiers []string              `json:"identifiers,omitempty" dynamodbav:"Identifiers,omitempty"`
	Tags        []string              `json:"tags,omitempty" dynamodbav:"Tags,omitempty"`
	Relations   []RelationEntry       `json:"relations" dynamodbav:"Relations"`
	CreatedAt   time.Time             `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time             `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// RelationEntry is a typed, many-valued edge from a node to other nodes.
type RelationEntry struct {
	RelationType string   `json:"relationType" dynamodbav:"RelationType"`
	Targets      []string `json:"targets" dynamodbav:"Targets"`
}

// RelationIndex returns the position of the entry for relationType, or -1.
func (n *Node) RelationIndex(relationType string) int {
	for i, entry := range n.Relations {
		if entry.RelationType == relationType {
			return i
		}
	}
	return -1
}

// Relation returns the entry for relationType.
func (n *Node) Relation(relationType string) (RelationEntry, bool) {
	if i := n.RelationIndex(relationType); i >= 0 {
		return n.Relations[i], true
	}
	return RelationEntry{}, false
}

// TargetsOf returns a copy of the target ids held under relationType.
func (n *Node) TargetsOf(relationType string) []string {
	entry, ok := n.Relation(relationType)
	if !ok {
		return nil
	}
	targets := make([]string, len(entry.Targets))
	copy(targets, entry.Targets)
	return targets
}

// HasIdentifier reports whether value is the node id or one of its identifiers.
func (n *Node) HasIdentifier(value string) bool {
	if n.ID == value {
		return true
	}
	for _, identifier := range n.Identifiers {
		if identifier == value {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate relations without
// touching a shared instance.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Identifiers = append([]string(nil), n.Identifiers...)
	clone.Tags = append([]string(nil), n.Tags...)
	if n.Relations != nil {
		clone.Relations = make([]RelationEntry, len(n.Relations))
		for i, entry := range n.Relations {
			clone.Relations[i] = RelationEntry{
				RelationType: entry.RelationType,
				Targets:      append([]string(nil), entry.Targets...),
			}
		}
	}
	return &clone
}

// Touch bumps UpdatedAt.
func (n *Node) Touch(now time.Time) {
	n.UpdatedAt = now
}

// IDs extracts the ids of the given nodes, skipping nil entries.
func IDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node != nil {
			ids = append(ids, node.ID)
		}
	}
	return ids
}
