package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "plain title",
			title: "My Song",
			want:  "My_Song",
		},
		{
			name:  "punctuation stripped",
			title: `AC/DC - "Back In Black" (Official)`,
			want:  "ACDC_-_Back_In_Black_Official",
		},
		{
			name:  "collapses whitespace runs",
			title: "a   b\t\tc",
			want:  "a_b_c",
		},
		{
			name:  "empty title",
			title: "",
			want:  "",
		},
		{
			name:  "only unsafe characters",
			title: "???!!!",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.title))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := SanitizeFilename(long)
	assert.Len(t, got, 100)
}

func TestRemove(t *testing.T) {
	t.Run("missing path is not an error", func(t *testing.T) {
		assert.NoError(t, Remove(filepath.Join(t.TempDir(), "nope")))
	})

	t.Run("removes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.mp3")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, Remove(path))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("removes directory tree", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "work")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "a.mp3"), []byte("x"), 0644))
		require.NoError(t, Remove(dir))
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "temp_1"), 0755))

	removed, err := ClearDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearDir_MissingDir(t *testing.T) {
	removed, err := ClearDir(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
