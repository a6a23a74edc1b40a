// Package runner orchestrates the lifecycle of conversion jobs.
//
// The start methods run their validation and metadata phase synchronously --
// an unresolvable reference fails the caller and no job record is ever
// created. Once a job exists, a single detached goroutine owns all mutation
// of that job until it reaches a terminal state; callers observe progress by
// polling the job store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/audioforge/audioforge/pkg/archive"
	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/fsutil"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/transcode"
)

var (
	// ErrNotFound is returned when a job id is unknown (or already evicted).
	ErrNotFound = errors.New("conversion not found")

	// ErrNotCompleted is returned when an artifact is requested before the
	// job reached the completed state.
	ErrNotCompleted = errors.New("conversion not completed yet")

	// ErrCatalogDisabled is returned for catalog references when no catalog
	// provider is configured.
	ErrCatalogDisabled = errors.New("catalog support is not configured")
)

// StartResult is returned by the start methods once a job is registered.
type StartResult struct {
	JobID      string `json:"job_id"`
	Title      string `json:"title"`
	TotalItems int    `json:"total_items,omitempty"`
}

// Runner converts references into tracked jobs. Safe for concurrent use.
type Runner struct {
	store      *jobstore.Store
	source     mediasource.Source
	encoder    transcode.Encoder
	packer     archive.Packer
	catalog    catalog.Provider
	storageDir string
	logger     *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCatalog enables catalog (non-directly-playable) references.
func WithCatalog(provider catalog.Provider) Option {
	return func(r *Runner) {
		r.catalog = provider
	}
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Runner writing artifacts into storageDir.
func New(store *jobstore.Store, source mediasource.Source, encoder transcode.Encoder, packer archive.Packer, storageDir string, opts ...Option) *Runner {
	r := &Runner{
		store:      store,
		source:     source,
		encoder:    encoder,
		packer:     packer,
		storageDir: storageDir,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the job registry for read-side consumers (HTTP handlers,
// the reaper).
func (r *Runner) Store() *jobstore.Store {
	return r.store
}

// StartSingle converts one directly-playable reference. Metadata resolution
// happens before the job is created, so resolution failures surface here
// and never leave a dangling processing job behind.
func (r *Runner) StartSingle(ctx context.Context, ref string, bitrate int) (*StartResult, error) {
	meta, err := r.source.ResolveMetadata(ctx, ref)
	if err != nil {
		return nil, err
	}

	id := jobstore.NewID()
	display := fsutil.SanitizeFilename(meta.Title)
	r.store.Create(jobstore.Spec{
		ID:           id,
		Kind:         jobstore.KindSingle,
		Title:        meta.Title,
		DisplayName:  display,
		ArtifactName: fmt.Sprintf("%s_%s.mp3", display, id),
	})

	go r.runSingle(id, meta, bitrate)

	return &StartResult{JobID: id, Title: meta.Title}, nil
}

// StartPlaylist converts every item of a directly-playable playlist into a
// single archive. Playlist discovery failures surface synchronously.
func (r *Runner) StartPlaylist(ctx context.Context, ref string, bitrate int) (*StartResult, error) {
	playlist, err := r.source.ResolvePlaylist(ctx, ref)
	if err != nil {
		return nil, err
	}

	entries := make([]playlistEntry, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		ref := item.Ref
		entries = append(entries, playlistEntry{
			title: item.Title,
			resolve: func(context.Context) (string, error) {
				return ref, nil
			},
		})
	}

	return r.startPlaylistJob(playlist.Title, entries, bitrate), nil
}

// StartCatalogTrack converts a single catalog entry by first finding a
// playable match for it.
func (r *Runner) StartCatalogTrack(ctx context.Context, ref string, bitrate int) (*StartResult, error) {
	if r.catalog == nil {
		return nil, ErrCatalogDisabled
	}
	track, err := r.catalog.TrackFromURL(ctx, ref)
	if err != nil {
		return nil, err
	}
	playableRef, err := r.catalog.FindPlayableMatch(ctx, *track)
	if err != nil {
		return nil, err
	}
	return r.StartSingle(ctx, playableRef, bitrate)
}

// StartCatalogPlaylist converts a catalog playlist. Each track is matched to
// playable media lazily, inside the job, so one unmatchable track only costs
// that track.
func (r *Runner) StartCatalogPlaylist(ctx context.Context, ref string, bitrate int) (*StartResult, error) {
	if r.catalog == nil {
		return nil, ErrCatalogDisabled
	}
	playlist, err := r.catalog.PlaylistFromURL(ctx, ref)
	if err != nil {
		return nil, err
	}

	entries := make([]playlistEntry, 0, len(playlist.Tracks))
	for _, track := range playlist.Tracks {
		track := track
		entries = append(entries, playlistEntry{
			title: track.DisplayName(),
			resolve: func(ctx context.Context) (string, error) {
				return r.catalog.FindPlayableMatch(ctx, track)
			},
		})
	}

	return r.startPlaylistJob(playlist.Name, entries, bitrate), nil
}

// ArtifactPath returns the on-disk location of a completed job's artifact.
func (r *Runner) ArtifactPath(id string) (string, error) {
	job, ok := r.store.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	if job.Status != jobstore.StatusCompleted {
		return "", ErrNotCompleted
	}
	return filepath.Join(r.storageDir, job.ArtifactName), nil
}

// DeleteJob removes a job's tracking entry, its artifact, and any leftover
// scratch directory. Reports whether the job existed.
func (r *Runner) DeleteJob(id string) bool {
	job, ok := r.store.Get(id)
	if !ok {
		return false
	}
	if err := fsutil.Remove(filepath.Join(r.storageDir, job.ArtifactName)); err != nil {
		r.logger.Warn("failed to delete artifact", zap.String("job_id", id), zap.Error(err))
	}
	if err := fsutil.Remove(filepath.Join(r.storageDir, jobstore.WorkDirName(id))); err != nil {
		r.logger.Warn("failed to delete work dir", zap.String("job_id", id), zap.Error(err))
	}
	return r.store.Delete(id)
}

// runSingle is the detached task owning a single-item job. It runs on a
// background context: jobs have no cancellation primitive and always reach a
// terminal state unless the process exits first.
func (r *Runner) runSingle(id string, meta *mediasource.Metadata, bitrate int) {
	ctx := context.Background()

	job, ok := r.store.Get(id)
	if !ok {
		return
	}
	dest := filepath.Join(r.storageDir, job.ArtifactName)

	err := r.convertOne(ctx, meta.PlayableRef, meta.Duration, bitrate, dest, func(pct int) {
		r.store.Update(id, func(j *jobstore.Job) {
			if pct > j.Progress {
				j.Progress = pct
			}
		})
	})
	if err != nil {
		r.logger.Warn("conversion failed",
			zap.String("job_id", id),
			zap.String("title", meta.Title),
			zap.Error(err))
		r.fail(id, err)
		return
	}

	r.complete(id, "")
	r.logger.Info("conversion completed",
		zap.String("job_id", id),
		zap.String("title", meta.Title))
}

// convertOne streams one playable reference through the encoder.
func (r *Runner) convertOne(ctx context.Context, playableRef string, duration time.Duration, bitrate int, dest string, progress transcode.ProgressFunc) error {
	stream, err := r.source.OpenStream(ctx, playableRef)
	if err != nil {
		return err
	}
	defer stream.Close()

	opts := transcode.Options{
		Bitrate:  bitrate,
		Duration: duration,
		DestPath: dest,
	}
	return r.encoder.Encode(ctx, stream, opts, progress)
}

// fail records the failed terminal transition. At most one terminal
// transition ever happens per job.
func (r *Runner) fail(id string, err error) {
	now := time.Now().UTC()
	r.store.Update(id, func(j *jobstore.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = jobstore.StatusFailed
		j.Error = publicMessage(err)
		j.CompletedAt = &now
	})
}

// complete records the completed terminal transition. summary carries the
// partial-failure note for playlist jobs and is empty otherwise.
func (r *Runner) complete(id, summary string) {
	now := time.Now().UTC()
	r.store.Update(id, func(j *jobstore.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = jobstore.StatusCompleted
		j.Progress = 100
		j.Error = summary
		j.CompletedAt = &now
	})
}
