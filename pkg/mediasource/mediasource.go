// Package mediasource abstracts the remote media backend behind a narrow
// interface. The orchestration core only ever sees metadata, playlist item
// lists, and readable audio streams; every protocol detail stays behind
// implementations of Source.
package mediasource

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnavailable is returned when a reference cannot be resolved to playable
// media. Its message is safe to surface to callers.
var ErrUnavailable = errors.New("media is unavailable or cannot be resolved")

// Metadata is the canonical description of a single playable item.
type Metadata struct {
	Title     string
	Author    string
	Duration  time.Duration
	Thumbnail string

	// PlayableRef is the reference OpenStream accepts. It may differ from
	// the reference the caller originally supplied (e.g. a search result).
	PlayableRef string
}

// Item is one entry of a resolved playlist.
type Item struct {
	Title string
	Ref   string
}

// Playlist is an ordered list of playable items.
type Playlist struct {
	Title string
	Items []Item
}

// Source resolves references and opens audio streams.
//
// Implementations must be safe for concurrent use; the runner invokes them
// from detached per-job goroutines.
type Source interface {
	// ResolveMetadata resolves a single playable reference to its metadata.
	ResolveMetadata(ctx context.Context, ref string) (*Metadata, error)

	// ResolvePlaylist expands a playlist reference into its ordered items.
	ResolvePlaylist(ctx context.Context, ref string) (*Playlist, error)

	// OpenStream returns the raw audio bytes for a playable reference. The
	// caller owns the returned reader and must close it.
	OpenStream(ctx context.Context, playableRef string) (io.ReadCloser, error)

	// Search returns the best playable match for a free-text query, used to
	// map catalog entries onto playable media.
	Search(ctx context.Context, query string) (*Metadata, error)
}
