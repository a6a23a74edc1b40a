// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/runner"
)

// HTTPErrorResponder writes an error response for err.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// httpErrorResponder is the active responder. Swappable for tests and
// embedders that want a different error surface.
var httpErrorResponder HTTPErrorResponder = defaultErrorResponder

// SetHTTPErrorResponder replaces the active error responder. Passing nil
// restores the default.
func SetHTTPErrorResponder(responder HTTPErrorResponder) {
	if responder == nil {
		httpErrorResponder = defaultErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default error responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// defaultErrorResponder maps domain errors onto the standard envelope.
// Unknown errors become an opaque 500.
func defaultErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, runner.ErrNotFound):
		apperrors.Respond(w, r, http.StatusNotFound, apperrors.CodeNotFound, err.Error())
	case errors.Is(err, runner.ErrNotCompleted):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, runner.ErrNotCompleted.Error())
	case errors.Is(err, runner.ErrCatalogDisabled):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, runner.ErrCatalogDisabled.Error())
	case errors.Is(err, mediasource.ErrUnavailable):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, mediasource.ErrUnavailable.Error())
	case errors.Is(err, catalog.ErrTrackLookup):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, catalog.ErrTrackLookup.Error())
	case errors.Is(err, catalog.ErrPlaylistLookup):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, catalog.ErrPlaylistLookup.Error())
	case errors.Is(err, catalog.ErrNoMatch):
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, catalog.ErrNoMatch.Error())
	default:
		apperrors.Respond(w, r, http.StatusInternalServerError, apperrors.CodeInternal, "internal error")
	}
}
