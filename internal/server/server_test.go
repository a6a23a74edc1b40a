package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audioforge/audioforge/internal/config"
	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/internal/server/handlers"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/runner"
)

type fakeService struct {
	started  []string
	artifact string
	pathErr  error
	deleted  map[string]bool
}

func (f *fakeService) start(ref string) (*runner.StartResult, error) {
	f.started = append(f.started, ref)
	return &runner.StartResult{JobID: "job-1", Title: "Title"}, nil
}

func (f *fakeService) StartSingle(_ context.Context, ref string, _ int) (*runner.StartResult, error) {
	return f.start(ref)
}

func (f *fakeService) StartPlaylist(_ context.Context, ref string, _ int) (*runner.StartResult, error) {
	return f.start(ref)
}

func (f *fakeService) StartCatalogTrack(_ context.Context, ref string, _ int) (*runner.StartResult, error) {
	return f.start(ref)
}

func (f *fakeService) StartCatalogPlaylist(_ context.Context, ref string, _ int) (*runner.StartResult, error) {
	return f.start(ref)
}

func (f *fakeService) ArtifactPath(id string) (string, error) {
	if f.pathErr != nil {
		return "", f.pathErr
	}
	return f.artifact, nil
}

func (f *fakeService) DeleteJob(id string) bool {
	if f.deleted == nil {
		f.deleted = make(map[string]bool)
	}
	f.deleted[id] = true
	return true
}

type fakeResolver struct {
	meta *mediasource.Metadata
	err  error
}

func (f *fakeResolver) ResolveMetadata(_ context.Context, _ string) (*mediasource.Metadata, error) {
	return f.meta, f.err
}

func testServer(t *testing.T, service handlers.ConversionService, store *jobstore.Store) *Server {
	t.Helper()
	if store == nil {
		store = jobstore.NewStore()
	}
	handlers.InitHealthManager("test")
	return New(
		config.ServerConfig{Host: "127.0.0.1", Port: 0},
		config.RateLimitConfig{ConvertPerMinute: 100, DownloadPerMinute: 100},
		Deps{
			Conversions: handlers.NewConversions(service, store, 128),
			Info:        handlers.NewInfo(&fakeResolver{meta: &mediasource.Metadata{Title: "T"}}),
			Version:     handlers.VersionInfo{Version: "test"},
		},
	)
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := testServer(t, &fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := testServer(t, &fakeService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestServer_RoutesRegistered(t *testing.T) {
	srv := testServer(t, &fakeService{}, nil)

	endpoints := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/health/live", http.StatusOK},
		{"GET", "/health/ready", http.StatusOK},
		{"GET", "/health/startup", http.StatusOK},
		{"GET", "/version", http.StatusOK},
		{"GET", "/api/conversions", http.StatusOK},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, ep.want, rec.Code)
		})
	}
}

func TestServer_CreateConversion(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "video url",
			body:     `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`,
			wantCode: http.StatusAccepted,
		},
		{
			name:     "playlist url",
			body:     `{"url": "https://www.youtube.com/playlist?list=PLabc123def456ghi", "bitrate": 320}`,
			wantCode: http.StatusAccepted,
		},
		{
			name:     "unrecognized url",
			body:     `{"url": "https://example.com/whatever"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad bitrate",
			body:     `{"url": "https://youtu.be/dQw4w9WgXcQ", "bitrate": 100}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing url",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			body:     `{not json`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, &fakeService{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/conversions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusAccepted {
				var res runner.StartResult
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
				assert.Equal(t, "job-1", res.JobID)
			}
		})
	}
}

func TestServer_GetConversion(t *testing.T) {
	store := jobstore.NewStore()
	id := store.Create(jobstore.Spec{
		Kind:         jobstore.KindSingle,
		Title:        "Song",
		ArtifactName: "Song_x.mp3",
	})
	srv := testServer(t, &fakeService{}, store)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var job jobstore.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, id, job.ID)
	assert.Equal(t, jobstore.StatusProcessing, job.Status)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Download(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Song_x.mp3")
	require.NoError(t, os.WriteFile(artifact, []byte("mp3data"), 0o644))

	store := jobstore.NewStore()
	id := store.Create(jobstore.Spec{
		Kind:         jobstore.KindSingle,
		Title:        "Song",
		ArtifactName: "Song_x.mp3",
	})
	store.Update(id, func(j *jobstore.Job) { j.Status = jobstore.StatusCompleted })

	t.Run("completed", func(t *testing.T) {
		srv := testServer(t, &fakeService{artifact: artifact}, store)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/conversions/%s/download", id), nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "mp3data", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "Song_x.mp3")
	})

	t.Run("not completed", func(t *testing.T) {
		srv := testServer(t, &fakeService{pathErr: runner.ErrNotCompleted}, store)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/conversions/%s/download", id), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		srv := testServer(t, &fakeService{pathErr: runner.ErrNotFound}, store)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/unknown/download", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("artifact swept from disk", func(t *testing.T) {
		srv := testServer(t, &fakeService{artifact: filepath.Join(dir, "gone.mp3")}, store)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/conversions/%s/download", id), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_DeleteConversion(t *testing.T) {
	service := &fakeService{}
	srv := testServer(t, service, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/conversions/job-9", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, service.deleted["job-9"])
}

func TestServer_Info(t *testing.T) {
	srv := testServer(t, &fakeService{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/info?url=https://youtu.be/dQw4w9WgXcQ", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/info", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ConvertRateLimit(t *testing.T) {
	store := jobstore.NewStore()
	handlers.InitHealthManager("test")
	srv := New(
		config.ServerConfig{Host: "127.0.0.1", Port: 0},
		config.RateLimitConfig{ConvertPerMinute: 1, DownloadPerMinute: 1},
		Deps{
			Conversions: handlers.NewConversions(&fakeService{}, store, 128),
			Info:        handlers.NewInfo(&fakeResolver{meta: &mediasource.Metadata{}}),
			Version:     handlers.VersionInfo{Version: "test"},
		},
	)

	body := `{"url": "https://youtu.be/dQw4w9WgXcQ"}`
	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/conversions", strings.NewReader(body))
		req.RemoteAddr = "10.1.1.1:5000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestServer_Port(t *testing.T) {
	srv := testServer(t, &fakeService{}, nil)
	assert.Equal(t, 0, srv.Port())
}
