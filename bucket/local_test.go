package bucket

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageFlushRoundTrip(t *testing.T) {
	assert := assertion.New(t)
	dir := t.TempDir()
	storage, err := NewLocalStorage(filepath.Join(dir, "cache"), filepath.Join(dir, "bucket"))
	require.NoError(t, err)
	ctx := context.Background()

	f, err := storage.Create("coll1.00000003", os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("sealed object bytes"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Not flushed yet.
	ok, err := storage.Exists(ctx, "coll1.00000003")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(storage.Flush(ctx, "coll1.00000003"))
	ok, err = storage.Exists(ctx, "coll1.00000003")
	assert.NoError(err)
	assert.True(ok)

	got, err := os.ReadFile(filepath.Join(dir, "bucket", "coll1.00000003"))
	assert.NoError(err)
	assert.Equal([]byte("sealed object bytes"), got)

	stats := storage.Statistics()
	assert.Equal(uint64(1), stats.CreateCount)
	assert.Equal(uint64(1), stats.PutObjectCount)
	assert.Equal(uint64(2), stats.ObjectExistsCount)
}

func TestLocalStorageFlushMissingObject(t *testing.T) {
	assert := assertion.New(t)
	dir := t.TempDir()
	storage, err := NewLocalStorage(filepath.Join(dir, "cache"), filepath.Join(dir, "bucket"))
	require.NoError(t, err)

	assert.Error(storage.Flush(context.Background(), "coll1.00000099"))
}
