package valueobjects

import "fmt"

// NodeType classifies a piece of physical or logical infrastructure.
type NodeType string

const (
	NodeTypeCompute      NodeType = "compute"
	NodeTypeEnclosure    NodeType = "enclosure"
	NodeTypeRack         NodeType = "rack"
	NodeTypeSwitch       NodeType = "switch"
	NodeTypePDU          NodeType = "pdu"
	NodeTypeMgmt         NodeType = "mgmt"
	NodeTypeUnclassified NodeType = ""
)

var knownNodeTypes = map[NodeType]bool{
	NodeTypeCompute:      true,
	NodeTypeEnclosure:    true,
	NodeTypeRack:         true,
	NodeTypeSwitch:       true,
	NodeTypePDU:          true,
	NodeTypeMgmt:         true,
	NodeTypeUnclassified: true,
}

// ParseNodeType validates a node type string.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !knownNodeTypes[t] {
		return NodeTypeUnclassified, fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// String returns the wire value of the type.
func (t NodeType) String() string {
	return string(t)
}
