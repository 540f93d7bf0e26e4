package utils

import (
	"testing"

	"inventory-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name string   `json:"name" validate:"required,max=5"`
	Type string   `json:"type" validate:"omitempty,oneof=rack pdu"`
	Tags []string `json:"tags" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sampleRequest{Name: "r1", Type: "rack"}))

	err := ValidateStruct(sampleRequest{Type: "toaster", Tags: []string{"a", "b", "c"}})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	details := errors.GetAppError(err).Details
	assert.Equal(t, "name is required", details["name"])
	assert.Equal(t, "type must be one of: rack pdu", details["type"])
	assert.Contains(t, details, "tags")
}
