package commands

import (
	"inventory-backend/domain/core/entities"
	"inventory-backend/pkg/errors"
	"inventory-backend/pkg/utils"
)

// CreateNodeCommand represents the command to create a new node
type CreateNodeCommand struct {
	ID          string                   `json:"id,omitempty" validate:"omitempty,max=255,excludesall=/#"`
	Name        string                   `json:"name" validate:"max=255"`
	Type        string                   `json:"type" validate:"omitempty,oneof=compute enclosure rack switch pdu mgmt"`
	Identifiers []string                 `json:"identifiers,omitempty" validate:"max=64,dive,required,max=255"`
	Tags        []string                 `json:"tags,omitempty" validate:"max=32,dive,required,max=64"`
	Relations   []entities.RelationEntry `json:"relations,omitempty" validate:"max=32"`
}

// Validate validates the command
func (c CreateNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateNodeCommand patches the scalar fields of a node. Relations are
// only changed through EditRelationsCommand so both sides stay in step.
type UpdateNodeCommand struct {
	Identifier  string    `json:"-" validate:"required"`
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=255"`
	Type        *string   `json:"type,omitempty" validate:"omitempty,oneof=compute enclosure rack switch pdu mgmt"`
	Identifiers *[]string `json:"identifiers,omitempty" validate:"omitempty,max=64,dive,required,max=255"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,max=32,dive,required,max=64"`
}

// Validate validates the command
func (c UpdateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Name == nil && c.Type == nil && c.Identifiers == nil && c.Tags == nil {
		return errors.NewValidationError("update sets no fields")
	}
	return nil
}

// DeleteNodeCommand removes a node and everything it owns
type DeleteNodeCommand struct {
	Identifier string `json:"-" validate:"required"`
}

// Validate validates the command
func (c DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// BulkDeleteNodesCommand removes several nodes, one cascade each
type BulkDeleteNodesCommand struct {
	Identifiers []string `json:"identifiers" validate:"required,min=1,max=100,dive,required"`
}

// Validate validates the command
func (c BulkDeleteNodesCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// BulkDeleteNodesResult reports the outcome per requested identifier
type BulkDeleteNodesResult struct {
	DeletedCount int               `json:"deletedCount"`
	DeletedIDs   []string          `json:"deletedIds"`
	FailedIDs    []string          `json:"failedIds,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// RelationOperation selects the mutator a relation edit applies
type RelationOperation string

const (
	RelationAdd    RelationOperation = "add"
	RelationRemove RelationOperation = "remove"
)

// EditRelationsCommand adds or removes typed relations between a node and
// its targets. Relations maps relation type to target ids or identifiers.
type EditRelationsCommand struct {
	Identifier string              `json:"-" validate:"required"`
	Operation  RelationOperation   `json:"-" validate:"required,oneof=add remove"`
	Relations  map[string][]string `json:"relations" validate:"required,min=1,dive,keys,required,endkeys,max=500"`
}

// Validate validates the command
func (c EditRelationsCommand) Validate() error {
	return utils.ValidateStruct(c)
}
