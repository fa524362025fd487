package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.jpg", "c.png", "notes.txt", "d.jpeg", "e.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	images, err := DiscoverImages(dir, []string{".jpg", "jpeg", ".PNG"})

	require.NoError(t, err)
	var names []string
	for _, img := range images {
		names = append(names, filepath.Base(img.Path))
		assert.EqualValues(t, 1, img.Size)
	}
	assert.Equal(t, []string{"a.jpg", "b.JPG", "c.png", "d.jpeg"}, names)
}

func TestDiscoverImagesMissingDir(t *testing.T) {
	_, err := DiscoverImages(filepath.Join(t.TempDir(), "nope"), []string{".jpg"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
