package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/audioforge/audioforge/pkg/fsutil"
	"github.com/audioforge/audioforge/pkg/jobstore"
)

// maxFailedNames bounds how many item names appear in a partial-failure
// summary.
const maxFailedNames = 3

// fanoutShare is how much of the progress range the per-item loop covers.
// The remaining points are reserved for packaging, so polling never reports
// 100 before the archive exists.
const fanoutShare = 90

// playlistEntry is one unit of playlist fan-out. resolve maps the entry to a
// playable reference; for catalog entries this involves a search and may
// fail per-item.
type playlistEntry struct {
	title   string
	resolve func(ctx context.Context) (string, error)
}

// startPlaylistJob registers a playlist job and detaches the task that owns
// it.
func (r *Runner) startPlaylistJob(title string, entries []playlistEntry, bitrate int) *StartResult {
	id := jobstore.NewID()
	display := fsutil.SanitizeFilename(title)
	r.store.Create(jobstore.Spec{
		ID:           id,
		Kind:         jobstore.KindPlaylist,
		Title:        title,
		DisplayName:  display,
		ArtifactName: fmt.Sprintf("%s_%s.zip", display, id),
		TotalItems:   len(entries),
	})

	go r.runPlaylist(id, entries, bitrate)

	return &StartResult{JobID: id, Title: title, TotalItems: len(entries)}
}

// runPlaylist is the detached task owning a playlist job: sequential
// fan-out over the entries into a scratch directory, then packaging.
// Children run strictly one at a time; that bounds peak resource usage to a
// single open stream and encoder process.
func (r *Runner) runPlaylist(id string, entries []playlistEntry, bitrate int) {
	ctx := context.Background()

	job, ok := r.store.Get(id)
	if !ok {
		return
	}
	workDir := filepath.Join(r.storageDir, jobstore.WorkDirName(id))
	archivePath := filepath.Join(r.storageDir, job.ArtifactName)

	if err := fsutil.EnsureDir(workDir); err != nil {
		r.logger.Error("failed to create work dir", zap.String("job_id", id), zap.Error(err))
		r.fail(id, err)
		return
	}
	defer func() {
		if err := fsutil.Remove(workDir); err != nil {
			r.logger.Warn("failed to clean work dir", zap.String("job_id", id), zap.Error(err))
		}
	}()

	total := len(entries)
	var failed []string

	for i, entry := range entries {
		if err := r.convertEntry(ctx, entry, bitrate, workDir); err != nil {
			failed = append(failed, entry.title)
			r.logger.Warn("playlist item failed",
				zap.String("job_id", id),
				zap.String("item", entry.title),
				zap.Error(err))
		} else {
			r.logger.Debug("playlist item converted",
				zap.String("job_id", id),
				zap.String("item", entry.title),
				zap.Int("processed", i+1),
				zap.Int("total", total))
		}

		processed := i + 1
		r.store.Update(id, func(j *jobstore.Job) {
			j.ProcessedItems = processed
			// Integer division floors; reporting early would be worse than
			// reporting late.
			j.Progress = processed * fanoutShare / total
		})
	}

	if err := r.packer.Pack(ctx, workDir, archivePath); err != nil {
		r.logger.Error("packaging failed", zap.String("job_id", id), zap.Error(err))
		if rmErr := fsutil.Remove(archivePath); rmErr != nil {
			r.logger.Warn("failed to remove partial archive", zap.String("job_id", id), zap.Error(rmErr))
		}
		r.fail(id, err)
		return
	}

	r.complete(id, failureSummary(failed))
	r.logger.Info("playlist conversion completed",
		zap.String("job_id", id),
		zap.Int("total", total),
		zap.Int("failed", len(failed)))
}

// convertEntry resolves and encodes one playlist item into the scratch
// directory.
func (r *Runner) convertEntry(ctx context.Context, entry playlistEntry, bitrate int, workDir string) error {
	playableRef, err := entry.resolve(ctx)
	if err != nil {
		return err
	}
	dest := entryDestPath(workDir, entry.title)
	return r.convertOne(ctx, playableRef, 0, bitrate, dest, nil)
}

// entryDestPath picks a collision-free .mp3 path for an item inside the
// scratch directory. Duplicate titles within one playlist get a numeric
// suffix so no item silently overwrites another.
func entryDestPath(workDir, title string) string {
	name := fsutil.SanitizeFilename(title)
	if name == "" {
		name = "track"
	}
	dest := filepath.Join(workDir, name+".mp3")
	for n := 2; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(workDir, fmt.Sprintf("%s_%d.mp3", name, n))
	}
}

// failureSummary renders the bounded, human-readable partial-failure note.
func failureSummary(failed []string) string {
	if len(failed) == 0 {
		return ""
	}
	shown := failed
	suffix := ""
	if len(shown) > maxFailedNames {
		shown = shown[:maxFailedNames]
		suffix = "..."
	}
	return fmt.Sprintf("Failed to convert %d tracks: %s%s", len(failed), strings.Join(shown, ", "), suffix)
}
