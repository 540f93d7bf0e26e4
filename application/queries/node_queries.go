package queries

import (
	"inventory-backend/pkg/utils"
)

// GetNodeQuery fetches one node by id or identifier
type GetNodeQuery struct {
	Identifier string `validate:"required"`
}

// Validate validates the GetNodeQuery
func (q GetNodeQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListNodesQuery lists nodes, optionally filtered by type and tag
type ListNodesQuery struct {
	Type  string `validate:"omitempty,oneof=compute enclosure rack switch pdu mgmt"`
	Tag   string `validate:"omitempty,max=64"`
	Limit int    `validate:"gte=0"`
}

// Validate validates the ListNodesQuery
func (q ListNodesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetRelationsQuery fetches a node's relation entries
type GetRelationsQuery struct {
	Identifier string `validate:"required"`
}

// Validate validates the GetRelationsQuery
func (q GetRelationsQuery) Validate() error {
	return utils.ValidateStruct(q)
}
