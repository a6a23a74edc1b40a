package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/runner"
)

func TestDefaultErrorResponder(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: runner.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "not completed", err: runner.ErrNotCompleted, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "catalog disabled", err: runner.ErrCatalogDisabled, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "wrapped unavailable", err: fmt.Errorf("x: %w", mediasource.ErrUnavailable), wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "no match", err: catalog.ErrNoMatch, wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "unknown error masked", err: errors.New("exec: ffmpeg blew up at /private/path"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()

			defaultErrorResponder(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body apperrors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantCode == "INTERNAL_ERROR" {
				assert.Equal(t, "internal error", body.Error.Message, "internal detail must not leak")
			}
		})
	}
}
