package jobstore

import "time"

// Status is the lifecycle state of a conversion job.
//
// NOTE: These values appear verbatim in API responses and are part of the
// stable external contract.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind distinguishes a single-item conversion from a playlist conversion.
// Fixed at creation, never changes.
type Kind string

const (
	KindSingle   Kind = "single"
	KindPlaylist Kind = "playlist"
)

// Job is the tracked state of one conversion request.
//
// The id is the sole external handle. Exactly one goroutine (the runner task
// that created the job) mutates a job after creation; everyone else reads
// snapshots through the store.
type Job struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Status       Status `json:"status"`
	Title        string `json:"title"`
	DisplayName  string `json:"display_name"`
	ArtifactName string `json:"artifact_name"`

	// Progress is an integer percentage, 0-100, monotonically non-decreasing
	// within a job's lifetime. Playlist jobs reserve the last 10 points for
	// packaging, so polling never sees 100 before the artifact exists.
	Progress int `json:"progress"`

	// TotalItems and ProcessedItems are populated for playlist jobs only.
	TotalItems     int `json:"total_items,omitempty"`
	ProcessedItems int `json:"processed_items,omitempty"`

	// Error holds a human-readable summary. Set on failure, and on partial
	// playlist success (completed with some items skipped).
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// WorkDirPrefix marks per-job scratch directories inside the storage root.
const WorkDirPrefix = "temp_"

// WorkDirName returns the scratch directory name owned by the given job.
func WorkDirName(id string) string {
	return WorkDirPrefix + id
}
