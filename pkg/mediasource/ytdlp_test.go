package mediasource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaylistTitle(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{
			name:   "no items",
			titles: nil,
			want:   "Playlist",
		},
		{
			name:   "shared prefix long enough",
			titles: []string{"The Beatles - Help", "The Beatles - Yesterday"},
			want:   "The Beatles Playlist",
		},
		{
			name:   "no useful shared prefix",
			titles: []string{"Alpha", "Beta", "Gamma"},
			want:   "Playlist",
		},
		{
			name:   "single item uses its title",
			titles: []string{"Greatest Hits Volume One"},
			want:   "Greatest Hits Volume One Playlist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, playlistTitle(tt.titles))
		})
	}
}

func TestSingleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))

	_, err := singleFile(dir)
	assert.Error(t, err, "directories alone produce no file")

	want := filepath.Join(dir, "audio.webm")
	require.NoError(t, os.WriteFile(want, []byte("x"), 0644))

	got, err := singleFile(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSpooledStream_CloseRemovesSpoolDir(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "fetch_1")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "audio.webm")
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0644))

	f, err := os.Open(path)
	require.NoError(t, err)

	stream := &spooledStream{File: f, dir: dir}
	buf := make([]byte, 5)
	n, err := stream.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(buf[:n]))

	require.NoError(t, stream.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWithWorkDir(t *testing.T) {
	s := NewYTDLP(WithWorkDir("/var/spool/audioforge"))
	assert.Equal(t, "/var/spool/audioforge", s.workDir)

	s = NewYTDLP(WithWorkDir(""))
	assert.Equal(t, os.TempDir(), s.workDir)
}
