package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"

	"tilefetch/pkg/config"
)

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "42.png", ArtifactName(42))

	id, ok := parseArtifactName("42.png")
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	for _, name := range []string{"42.jpg", "abc.png", ".42.png.123.tmp", "007.png", "+7.png", "-0.png"} {
		_, ok := parseArtifactName(name)
		assert.False(t, ok, name)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "residual_train")

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())

	exists, err := store.Exists(ctx, 7)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Save(ctx, 7, []byte("png data")))

	content, err := os.ReadFile(filepath.Join(dir, "7.png"))
	require.NoError(t, err)
	assert.Equal(t, "png data", string(content))

	exists, err = store.Exists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, filepath.Join(dir, "7.png"), store.Location(7))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files remain after a save")
}

func TestFileStoreIndexesExistingAndCleansTemp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.png"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".4.png.998877.tmp"), []byte("half"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.tmp"), []byte("keep"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".007.png.1.tmp"), []byte("keep"), 0644))

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count())

	exists, err := store.Exists(ctx, 3)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, 4)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(filepath.Join(dir, ".4.png.998877.tmp"))
	assert.True(t, os.IsNotExist(err))
	for _, name := range []string{"notes.txt", "notes.tmp", ".007.png.1.tmp"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestFileStoreIgnoresNonCanonicalNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"007.png", "+8.png", "-0.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())

	for _, id := range []int{7, 8, 0} {
		exists, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists, "id %d", id)
	}
}

func TestIsTempName(t *testing.T) {
	assert.True(t, isTempName(".4.png.998877.tmp"))
	for _, name := range []string{"notes.tmp", ".notes.tmp", ".4.png.tmp", ".4.png.abc.tmp", ".04.png.1.tmp", "4.png.1.tmp"} {
		assert.False(t, isTempName(name), name)
	}
}

func TestFileStoreNoticesRemovedArtifact(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, 5, []byte("png")))
	exists, err := store.Exists(ctx, 5)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, os.Remove(filepath.Join(dir, "5.png")))

	exists, err = store.Exists(ctx, 5)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, store.Count())
}

func TestFileStoreSeesFilesAddedLater(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "9.png"), []byte("x"), 0644))

	exists, err := store.Exists(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)

	store := NewBlobStore(bucket, "/tiles/")
	defer store.Close()

	exists, err := store.Exists(ctx, 5)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Save(ctx, 5, []byte("tile")))

	exists, err = store.Exists(ctx, 5)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := bucket.ReadAll(ctx, "tiles/5.png")
	require.NoError(t, err)
	assert.Equal(t, "tile", string(data))

	attrs, err := bucket.Attributes(ctx, "tiles/5.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", attrs.ContentType)
	assert.Equal(t, "tiles/5.png", store.Location(5))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "out")
	s, err := Open(ctx, config.OutputConfig{Directory: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.OutputConfig{Directory: dir, BucketURL: "mem://", Prefix: "run1"})
	require.NoError(t, err)
	assert.IsType(t, &BlobStore{}, s)
	assert.Equal(t, "mem://run1/2.png", s.Location(2))
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.OutputConfig{BucketURL: "nope://bucket"})
	assert.Error(t, err)
}

func TestOpenFileBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.OutputConfig{BucketURL: "file://" + filepath.ToSlash(dir)})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, 11, []byte("tile")))
	content, err := os.ReadFile(filepath.Join(dir, "11.png"))
	require.NoError(t, err)
	assert.Equal(t, "tile", string(content))
}
