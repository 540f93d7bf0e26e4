package valueobjects

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	first := NewNodeID()
	second := NewNodeID()

	_, err := uuid.Parse(first.String())
	assert.NoError(t, err)
	assert.NotEqual(t, first.String(), second.String())
}

func TestNewNodeIDFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "imported id kept", input: "rack-r", want: "rack-r"},
		{name: "trimmed", input: "  enc-e ", want: "enc-e"},
		{name: "blank", input: "   ", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
		{name: "hash", input: "a#b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewNodeIDFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestParseNodeType(t *testing.T) {
	nodeType, err := ParseNodeType("pdu")
	require.NoError(t, err)
	assert.Equal(t, NodeTypePDU, nodeType)

	unclassified, err := ParseNodeType("")
	require.NoError(t, err)
	assert.Equal(t, NodeTypeUnclassified, unclassified)

	_, err = ParseNodeType("toaster")
	assert.Error(t, err)
}
