package handlers

import (
	"context"
	"net/http"

	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/validate"
)

// MetadataResolver is the slice of the media source the info endpoint needs.
type MetadataResolver interface {
	ResolveMetadata(ctx context.Context, ref string) (*mediasource.Metadata, error)
}

// Info serves GET /api/info: metadata preview for a playable reference
// without starting a conversion.
type Info struct {
	resolver MetadataResolver
}

// NewInfo builds the info endpoint.
func NewInfo(resolver MetadataResolver) *Info {
	return &Info{resolver: resolver}
}

type infoResponse struct {
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Thumbnail       string `json:"thumbnail,omitempty"`
}

// Get resolves metadata for the url query parameter.
func (h *Info) Get(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "url query parameter is required")
		return
	}
	if !validate.IsVideoURL(ref) {
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "url is not a recognized video link")
		return
	}

	meta, err := h.resolver.ResolveMetadata(r.Context(), ref)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Title:           meta.Title,
		Author:          meta.Author,
		DurationSeconds: int(meta.Duration.Seconds()),
		Thumbnail:       meta.Thumbnail,
	})
}
