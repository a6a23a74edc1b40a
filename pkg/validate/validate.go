// Package validate classifies and validates media references before any job
// is created. Validation failures are always synchronous: an unsupported
// reference never reaches the job registry.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

// RefKind identifies which conversion flow a reference belongs to.
type RefKind string

const (
	RefUnknown         RefKind = "unknown"
	RefVideo           RefKind = "video"
	RefVideoPlaylist   RefKind = "video_playlist"
	RefCatalogTrack    RefKind = "catalog_track"
	RefCatalogPlaylist RefKind = "catalog_playlist"
)

// Bitrates lists the supported target bitrates in kbit/s.
var Bitrates = []int{64, 128, 192, 256, 320}

var (
	videoIDPattern    = regexp.MustCompile(`^[\w-]{11}$`)
	playlistIDPattern = regexp.MustCompile(`^(PL|UU|LL|RD|OL)[\w-]{10,}$`)
)

// IsVideoURL reports whether ref is a watchable YouTube video URL
// (youtube.com/watch?v=..., youtu.be/..., youtube.com/shorts/...).
func IsVideoURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	switch hostOnly(u) {
	case "youtu.be":
		return videoIDPattern.MatchString(strings.Trim(u.Path, "/"))
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			return videoIDPattern.MatchString(u.Query().Get("v"))
		}
		if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return videoIDPattern.MatchString(strings.Trim(rest, "/"))
		}
	}
	return false
}

// IsVideoPlaylistURL reports whether ref carries a resolvable YouTube
// playlist identifier.
func IsVideoPlaylistURL(ref string) bool {
	return PlaylistID(ref) != ""
}

// PlaylistID extracts the playlist identifier from a YouTube URL, or returns
// a bare identifier unchanged. Empty when no playlist is present.
func PlaylistID(ref string) string {
	ref = strings.TrimSpace(ref)
	if playlistIDPattern.MatchString(ref) {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	switch hostOnly(u) {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("list"); playlistIDPattern.MatchString(id) {
			return id
		}
	}
	return ""
}

// IsCatalogTrackURL reports whether ref is a Spotify track URL.
func IsCatalogTrackURL(ref string) bool {
	return catalogID(ref, "track") != ""
}

// IsCatalogPlaylistURL reports whether ref is a Spotify playlist URL.
func IsCatalogPlaylistURL(ref string) bool {
	return catalogID(ref, "playlist") != ""
}

// CatalogTrackID returns the Spotify track id embedded in ref, or "".
func CatalogTrackID(ref string) string { return catalogID(ref, "track") }

// CatalogPlaylistID returns the Spotify playlist id embedded in ref, or "".
func CatalogPlaylistID(ref string) string { return catalogID(ref, "playlist") }

func catalogID(ref, kind string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Hostname() != "open.spotify.com" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != kind || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// Classify maps a reference to the conversion flow that should handle it.
func Classify(ref string) RefKind {
	switch {
	// Playlist check first: a watch URL with a list parameter converts the
	// whole playlist, matching how the reference resolver treats it.
	case IsVideoPlaylistURL(ref):
		return RefVideoPlaylist
	case IsVideoURL(ref):
		return RefVideo
	case IsCatalogPlaylistURL(ref):
		return RefCatalogPlaylist
	case IsCatalogTrackURL(ref):
		return RefCatalogTrack
	default:
		return RefUnknown
	}
}

// IsValidBitrate reports whether bitrate is one of the supported encoder
// targets.
func IsValidBitrate(bitrate int) bool {
	for _, b := range Bitrates {
		if bitrate == b {
			return true
		}
	}
	return false
}

func hostOnly(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
