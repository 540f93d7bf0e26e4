package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestActiveWorkflowError(t *testing.T) {
	err := NewActiveWorkflowError("node-1", "graph-9")

	assert.True(t, IsConflict(err))
	assert.Equal(t, CodeActiveWorkflow, err.Code)
	assert.Equal(t, "node-1", err.Details["nodeId"])
	assert.Contains(t, err.Error(), "node-1")
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
}

func TestWrapKeepsType(t *testing.T) {
	wrapped := Wrap(NewNotFoundError("node abc"), "remove node")

	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "remove node")

	plain := Wrap(fmt.Errorf("boom"), "remove node")
	assert.True(t, IsType(plain, ErrorTypeInternal))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest, ErrorTypeValidation},
		{"not found", NewNotFoundError("node x"), http.StatusNotFound, ErrorTypeNotFound},
		{"conflict", NewActiveWorkflowError("n", "g"), http.StatusConflict, ErrorTypeConflict},
		{"plain", fmt.Errorf("oops"), http.StatusInternalServerError, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewErrorHandler(zap.NewNop(), false)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v2/nodes/x", nil)

			handler.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.True(t, body.Error)
			assert.Equal(t, string(tt.wantType), body.Type)
		})
	}
}

func TestErrorHandler_MiddlewareRecoversPanic(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	handler.Middleware(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
