package common

import (
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "inventory-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONBody(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name     string
		payload  string
		maxBytes int64
		wantErr  string
	}{
		{name: "valid", payload: `{"name":"rack-r"}`},
		{name: "empty", payload: ``, wantErr: "empty"},
		{name: "unknown field", payload: `{"nmae":"x"}`, wantErr: "unknown field"},
		{name: "too large", payload: `{"name":"` + strings.Repeat("x", 64) + `"}`, maxBytes: 16, wantErr: "exceeds 16 bytes"},
		{name: "trailing document", payload: `{"name":"a"}{"name":"b"}`, wantErr: "single JSON document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.payload))
			rec := httptest.NewRecorder()

			var got body
			err := ParseJSONBody(rec, req, &got, tt.maxBytes)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "rack-r", got.Name)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := RespondJSON(rec, 201, map[string]string{"id": "n-1"})

	require.NoError(t, err)
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"n-1"}`, rec.Body.String())
}
