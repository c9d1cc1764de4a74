package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"frame-10.jpg":         "ten",
		"frame-2.png":          "two",
		"cat.webp":             "cat",
		"avatar.GIF":           "gif",
		"frame-2.redacted.png": "skip",
		"notes.txt":            "skip",
		"frame-3.json":         "skip",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, images, 4)

	names := make([]string, len(images))
	for i, img := range images {
		names[i] = img.Name
	}
	assert.Equal(t, []string{"frame-2", "frame-10", "avatar", "cat"}, names)
	assert.Equal(t, "two", string(images[0].Data))
	assert.Equal(t, 2, images[0].Index)
	assert.Equal(t, -1, images[2].Index)
	assert.Equal(t, filepath.Join(dir, "frame-10.jpg"), images[1].Path)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestTrailingNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"frame-12", 12},
		{"007", 7},
		{"cat", -1},
		{"", -1},
		{"v2-final", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trailingNumber(tt.name))
		})
	}
}
