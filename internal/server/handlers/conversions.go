package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/runner"
	"github.com/audioforge/audioforge/pkg/validate"
)

// ConversionService is the slice of the runner the conversion endpoints
// need.
type ConversionService interface {
	StartSingle(ctx context.Context, ref string, bitrate int) (*runner.StartResult, error)
	StartPlaylist(ctx context.Context, ref string, bitrate int) (*runner.StartResult, error)
	StartCatalogTrack(ctx context.Context, ref string, bitrate int) (*runner.StartResult, error)
	StartCatalogPlaylist(ctx context.Context, ref string, bitrate int) (*runner.StartResult, error)
	ArtifactPath(id string) (string, error)
	DeleteJob(id string) bool
}

var _ ConversionService = (*runner.Runner)(nil)

// Conversions serves the /api/conversions endpoints.
type Conversions struct {
	service        ConversionService
	store          *jobstore.Store
	defaultBitrate int
}

// NewConversions builds the conversion endpoints.
func NewConversions(service ConversionService, store *jobstore.Store, defaultBitrate int) *Conversions {
	return &Conversions{
		service:        service,
		store:          store,
		defaultBitrate: defaultBitrate,
	}
}

type createRequest struct {
	URL     string `json:"url"`
	Bitrate int    `json:"bitrate,omitempty"`
}

// Create starts a conversion for the submitted reference and returns 202
// with the job handle. The reference kind decides which flow runs.
func (h *Conversions) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "url is required")
		return
	}

	bitrate := req.Bitrate
	if bitrate == 0 {
		bitrate = h.defaultBitrate
	}
	if !validate.IsValidBitrate(bitrate) {
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest,
			fmt.Sprintf("invalid bitrate %d (valid: %v)", bitrate, validate.Bitrates))
		return
	}

	var (
		res *runner.StartResult
		err error
	)
	switch validate.Classify(req.URL) {
	case validate.RefVideo:
		res, err = h.service.StartSingle(r.Context(), req.URL, bitrate)
	case validate.RefVideoPlaylist:
		res, err = h.service.StartPlaylist(r.Context(), req.URL, bitrate)
	case validate.RefCatalogTrack:
		res, err = h.service.StartCatalogTrack(r.Context(), req.URL, bitrate)
	case validate.RefCatalogPlaylist:
		res, err = h.service.StartCatalogPlaylist(r.Context(), req.URL, bitrate)
	default:
		apperrors.Respond(w, r, http.StatusBadRequest, apperrors.CodeBadRequest,
			"unrecognized url, expected a video, playlist, or catalog link")
		return
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, res)
}

// List returns every tracked job, newest first.
func (h *Conversions) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"conversions": h.store.List(),
	})
}

// Get returns one job by id.
func (h *Conversions) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := h.store.Get(id)
	if !ok {
		respondWithError(w, r, runner.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Download streams a completed job's artifact as an attachment.
func (h *Conversions) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	path, err := h.service.ArtifactPath(id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		// Tracked as completed but already swept from disk.
		respondWithError(w, r, runner.ErrNotFound)
		return
	}

	job, _ := h.store.Get(id)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", job.ArtifactName))
	http.ServeFile(w, r, path)
}

// Delete removes a job and its artifact.
func (h *Conversions) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if !h.service.DeleteJob(id) {
		respondWithError(w, r, runner.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
