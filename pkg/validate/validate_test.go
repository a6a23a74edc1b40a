package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want RefKind
	}{
		{
			name: "watch url",
			ref:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: RefVideo,
		},
		{
			name: "short url",
			ref:  "https://youtu.be/dQw4w9WgXcQ",
			want: RefVideo,
		},
		{
			name: "shorts url",
			ref:  "https://youtube.com/shorts/dQw4w9WgXcQ",
			want: RefVideo,
		},
		{
			name: "playlist url",
			ref:  "https://www.youtube.com/playlist?list=PLabc123456789",
			want: RefVideoPlaylist,
		},
		{
			name: "watch url with list parameter converts the playlist",
			ref:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc123456789",
			want: RefVideoPlaylist,
		},
		{
			name: "bare playlist id",
			ref:  "PLabc123456789",
			want: RefVideoPlaylist,
		},
		{
			name: "spotify track",
			ref:  "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			want: RefCatalogTrack,
		},
		{
			name: "spotify playlist",
			ref:  "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want: RefCatalogPlaylist,
		},
		{
			name: "unrelated url",
			ref:  "https://example.com/watch?v=dQw4w9WgXcQ",
			want: RefUnknown,
		},
		{
			name: "garbage",
			ref:  "not a url",
			want: RefUnknown,
		},
		{
			name: "empty",
			ref:  "",
			want: RefUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ref))
		})
	}
}

func TestIsVideoURL_RejectsBadIDs(t *testing.T) {
	assert.False(t, IsVideoURL("https://www.youtube.com/watch?v=short"))
	assert.False(t, IsVideoURL("https://youtu.be/"))
	assert.False(t, IsVideoURL("https://www.youtube.com/watch"))
}

func TestPlaylistID(t *testing.T) {
	assert.Equal(t, "PLabc123456789", PlaylistID("https://www.youtube.com/playlist?list=PLabc123456789"))
	assert.Equal(t, "PLabc123456789", PlaylistID("PLabc123456789"))
	assert.Equal(t, "", PlaylistID("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Equal(t, "", PlaylistID("list=nope"))
}

func TestCatalogIDs(t *testing.T) {
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", CatalogTrackID("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"))
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", CatalogPlaylistID("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	assert.Equal(t, "", CatalogTrackID("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	assert.Equal(t, "", CatalogPlaylistID("https://spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
}

func TestIsValidBitrate(t *testing.T) {
	for _, b := range Bitrates {
		assert.True(t, IsValidBitrate(b), "bitrate %d", b)
	}
	assert.False(t, IsValidBitrate(0))
	assert.False(t, IsValidBitrate(96))
	assert.False(t, IsValidBitrate(321))
}
