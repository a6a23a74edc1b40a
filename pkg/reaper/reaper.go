// Package reaper periodically evicts expired conversion jobs and removes
// stale files from the storage directory. Artifacts live on disk only for a
// retention window; the reaper enforces it, and also catches orphans left
// behind by crashed or interrupted runs.
package reaper

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/audioforge/audioforge/pkg/jobstore"
)

// Config controls what the reaper touches and how often.
type Config struct {
	// StorageDir is the directory holding artifacts and scratch dirs.
	StorageDir string

	// MaxAge is the retention window. Jobs older than this (by creation
	// time) are evicted, files older than this (by modification time) are
	// removed.
	MaxAge time.Duration

	// Interval between sweeps.
	Interval time.Duration

	// KeepPatterns are glob patterns (doublestar syntax) for storage dir
	// entries the orphan pass must never touch, e.g. ".gitkeep".
	KeepPatterns []string
}

// Summary reports what one sweep did.
type Summary struct {
	JobsEvicted  int `json:"jobs_evicted"`
	FilesRemoved int `json:"files_removed"`
	Errors       int `json:"errors"`
}

// Reaper sweeps the job store and storage directory on a fixed interval.
type Reaper struct {
	store  *jobstore.Store
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reaper) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Reaper over the given store and storage directory.
func New(store *jobstore.Store, cfg Config, opts ...Option) *Reaper {
	r := &Reaper{
		store:  store,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the periodic sweep loop. Calling Start on a running reaper
// is a no-op.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}

	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})

	go r.run(r.stop, r.stopped)
	r.logger.Info("reaper started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Duration("max_age", r.cfg.MaxAge))
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
// Calling Stop on a stopped reaper is a no-op.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}

	close(r.stop)
	<-r.stopped
	r.stop = nil
	r.stopped = nil
	r.logger.Info("reaper stopped")
}

func (r *Reaper) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			summary := r.Sweep(context.Background())
			if summary.JobsEvicted > 0 || summary.FilesRemoved > 0 || summary.Errors > 0 {
				r.logger.Info("sweep finished",
					zap.Int("jobs_evicted", summary.JobsEvicted),
					zap.Int("files_removed", summary.FilesRemoved),
					zap.Int("errors", summary.Errors))
			}
		}
	}
}

// Sweep runs one pass immediately: first tracked jobs past retention, then
// untracked files in the storage directory. Safe to call concurrently with
// the periodic loop.
func (r *Reaper) Sweep(ctx context.Context) Summary {
	var summary Summary
	cutoff := time.Now().Add(-r.cfg.MaxAge)

	for _, job := range r.store.List() {
		if ctx.Err() != nil {
			return summary
		}
		if !job.CreatedAt.Before(cutoff) {
			continue
		}
		r.evictJob(job, &summary)
	}

	r.sweepOrphans(ctx, cutoff, &summary)
	return summary
}

func (r *Reaper) evictJob(job jobstore.Job, summary *Summary) {
	if err := os.RemoveAll(filepath.Join(r.cfg.StorageDir, job.ArtifactName)); err != nil {
		r.logger.Warn("failed to remove artifact",
			zap.String("job_id", job.ID), zap.Error(err))
		summary.Errors++
	}
	if err := os.RemoveAll(filepath.Join(r.cfg.StorageDir, jobstore.WorkDirName(job.ID))); err != nil {
		r.logger.Warn("failed to remove work dir",
			zap.String("job_id", job.ID), zap.Error(err))
		summary.Errors++
	}
	r.store.Delete(job.ID)
	summary.JobsEvicted++
	r.logger.Debug("job evicted",
		zap.String("job_id", job.ID),
		zap.Time("created_at", job.CreatedAt))
}

// sweepOrphans removes storage dir entries that no live job claims and whose
// modification time predates the cutoff. Scratch dirs of live jobs are
// recognized by their name prefix plus a store lookup, so a long-running
// playlist conversion is never swept out from under its task.
func (r *Reaper) sweepOrphans(ctx context.Context, cutoff time.Time, summary *Summary) {
	entries, err := os.ReadDir(r.cfg.StorageDir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("failed to read storage dir", zap.Error(err))
			summary.Errors++
		}
		return
	}

	live := r.liveNames()

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if live[name] || r.keep(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.cfg.StorageDir, name)); err != nil {
			r.logger.Warn("failed to remove orphan", zap.String("name", name), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.FilesRemoved++
		r.logger.Debug("orphan removed", zap.String("name", name))
	}
}

// liveNames is the set of storage dir entry names owned by tracked jobs.
func (r *Reaper) liveNames() map[string]bool {
	live := make(map[string]bool)
	for _, job := range r.store.List() {
		live[job.ArtifactName] = true
		live[jobstore.WorkDirName(job.ID)] = true
	}
	return live
}

func (r *Reaper) keep(name string) bool {
	for _, pattern := range r.cfg.KeepPatterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			r.logger.Warn("invalid keep pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
