// Package jobstore is the in-memory registry of conversion jobs.
//
// The store is the single ownership boundary for job state: all mutation
// funnels through Update, so concurrent readers can never observe a torn
// write. Jobs live only in process memory; nothing survives a restart.
package jobstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Spec describes a job to be inserted. Kind, Title, DisplayName and
// ArtifactName are fixed for the job's lifetime.
type Spec struct {
	// ID is optional. When empty the store allocates a fresh UUID. Callers
	// that pre-compute the artifact name from the id generate it first via
	// NewID and pass it through.
	ID string

	Kind         Kind
	Title        string
	DisplayName  string
	ArtifactName string

	// TotalItems is only meaningful for playlist jobs.
	TotalItems int

	// CreatedAt is optional; zero means now. Exposed for retention tests.
	CreatedAt time.Time
}

// NewID allocates a fresh job identifier. IDs are never reused, even after
// eviction.
func NewID() string {
	return uuid.New().String()
}

// Store maps job ids to their current Job record. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create inserts a new job in processing state with zero progress and
// returns its id. Create never fails.
func (s *Store) Create(spec Spec) string {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		id = NewID()
	}
	createdAt := spec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	job := &Job{
		ID:           id,
		Kind:         spec.Kind,
		Status:       StatusProcessing,
		Title:        spec.Title,
		DisplayName:  spec.DisplayName,
		ArtifactName: spec.ArtifactName,
		TotalItems:   spec.TotalItems,
		CreatedAt:    createdAt,
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	return id
}

// Get returns a point-in-time copy of the job, or false if unknown.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the job under the store lock. Unknown ids are a
// silent no-op: eviction races with in-flight completion updates and must
// be tolerated.
func (s *Store) Update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

// Delete removes the job and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// List returns a snapshot of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// CountByStatus returns how many jobs are currently in the given status.
func (s *Store) CountByStatus(status Status) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}

// Len returns the total number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
