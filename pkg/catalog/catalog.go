// Package catalog integrates external music catalogs whose entries are not
// directly playable. A catalog provider resolves track and playlist
// metadata, and maps individual tracks onto playable media references via
// search.
package catalog

import (
	"context"
	"errors"
	"time"
)

// Known user-visible failures. Their messages are safe to show to callers.
var (
	ErrTrackLookup    = errors.New("failed to retrieve track information")
	ErrPlaylistLookup = errors.New("failed to retrieve playlist information")
	ErrNoMatch        = errors.New("no playable match found for track")
)

// Track is one catalog entry.
type Track struct {
	Name     string
	Artists  []string
	Duration time.Duration
	ID       string
}

// Playlist is an ordered collection of catalog tracks.
type Playlist struct {
	Name   string
	Tracks []Track
}

// Provider resolves catalog URLs and finds playable matches for tracks.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// TrackFromURL resolves a catalog track URL to its metadata.
	TrackFromURL(ctx context.Context, ref string) (*Track, error)

	// PlaylistFromURL resolves a catalog playlist URL to its metadata and
	// full track list.
	PlaylistFromURL(ctx context.Context, ref string) (*Playlist, error)

	// FindPlayableMatch maps a catalog track onto a playable media
	// reference.
	FindPlayableMatch(ctx context.Context, track Track) (string, error)
}

// DisplayName renders a track the way it appears in artifact filenames and
// failure summaries: "artist1, artist2 - name".
func (t Track) DisplayName() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	name := t.Artists[0]
	for _, artist := range t.Artists[1:] {
		name += ", " + artist
	}
	return name + " - " + t.Name
}

// SearchQuery renders the free-text query used to find a playable match.
func (t Track) SearchQuery() string {
	q := ""
	for _, artist := range t.Artists {
		q += artist + " "
	}
	return q + t.Name
}
