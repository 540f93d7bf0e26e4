package validators

import (
	"strings"
	"testing"

	"inventory-backend/domain/core/entities"
	"inventory-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNode(t *testing.T) {
	v := NewNodeValidator(nil)

	tests := []struct {
		name      string
		node      *entities.Node
		wantField string
	}{
		{name: "valid", node: &entities.Node{ID: "c-1", Type: "compute", Tags: []string{"rack:12"}}},
		{name: "bad id", node: &entities.Node{ID: "a/b"}, wantField: "id"},
		{name: "bad type", node: &entities.Node{ID: "c-1", Type: "toaster"}, wantField: "type"},
		{name: "long name", node: &entities.Node{ID: "c-1", Name: strings.Repeat("x", 300)}, wantField: "name"},
		{name: "blank identifier", node: &entities.Node{ID: "c-1", Identifiers: []string{" "}}, wantField: "identifiers"},
		{name: "bad tag", node: &entities.Node{ID: "c-1", Tags: []string{"has space"}}, wantField: "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateNode(tt.node)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, errors.GetAppError(err).Details, tt.wantField)
		})
	}
}

func TestValidateEdit(t *testing.T) {
	v := NewNodeValidator(nil)

	assert.NoError(t, v.ValidateEdit(map[string][]string{"contains": {"a", "b"}}))

	big := make([]string, 501)
	assert.True(t, errors.IsValidation(v.ValidateEdit(map[string][]string{"contains": big})))
}
