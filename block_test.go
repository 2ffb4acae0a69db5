package blockfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenValidation(t *testing.T) {
	assert := assertion.New(t)

	b, err := Open("", 0o644, nil)
	assert.Nil(b)
	assert.True(errors.Is(err, ErrNoName))

	b, err = Open("/tmp/coll1", 0o644, &Options{HasObjects: true, AllocSize: 8})
	assert.Nil(b)
	assert.Error(err)

	b, err = Open("/tmp/coll1", 0o644, &Options{HasObjects: true, Compression: CompressAlgorithm(42)})
	assert.Nil(b)
	assert.Error(err)
}

func TestOpenDefaults(t *testing.T) {
	assert := assertion.New(t)
	b, err := Open("/tmp/coll1", 0o644, nil)
	assert.NoError(err)
	assert.Equal(DefaultAllocSize, b.allocSize)
	assert.True(b.hasObjects)
	assert.Equal(CompSnappy, b.compression)
	assert.NotNil(b.compressor)
	assert.NoError(b.Close())
}

func TestAppendAdvancesSize(t *testing.T) {
	assert := assertion.New(t)
	b := testBlock(t, "coll1", nil)
	require.NoError(t, b.Load(Checkpoint{RootObjectID: 0}))

	payload := []byte("some page bytes")
	off, err := b.Append(payload)
	assert.NoError(err)
	assert.Equal(uint64(testAllocSize), off)
	assert.Equal(uint64(testAllocSize)+uint64(len(payload)), b.size)

	got := make([]byte, len(payload))
	_, err = b.file.ReadAt(got, int64(off))
	assert.NoError(err)
	assert.Equal(payload, got)
}

func TestAppendCompresses(t *testing.T) {
	assert := assertion.New(t)
	options := testOptions()
	options.Compression = CompSnappy
	b := testBlock(t, "coll1", options)
	require.NoError(t, b.Load(Checkpoint{RootObjectID: 0}))

	payload := bytes.Repeat([]byte("abcd"), 1024)
	off, err := b.Append(payload)
	assert.NoError(err)
	written := b.size - off
	assert.Less(written, uint64(len(payload)))

	got := make([]byte, written)
	_, err = b.file.ReadAt(got, int64(off))
	assert.NoError(err)
	decoded, err := SnappyDeCompress(got)
	assert.NoError(err)
	assert.Equal(payload, decoded)
}

func TestAppendWithoutFile(t *testing.T) {
	assert := assertion.New(t)
	b := testBlock(t, "coll1", nil)
	_, err := b.Append([]byte("x"))
	assert.True(errors.Is(err, ErrNoFile))
}

func TestCloseReleasesHandle(t *testing.T) {
	assert := assertion.New(t)
	b := testBlock(t, "coll1", nil)
	require.NoError(t, b.Load(Checkpoint{RootObjectID: 0}))
	live := b.live

	assert.NoError(b.Close())
	assert.Nil(b.file)
	assert.False(live.valid)

	// Closing twice is harmless.
	assert.NoError(b.Close())
}

func TestObjectFileLockedAgainstSecondWriter(t *testing.T) {
	assert := assertion.New(t)
	b := testBlock(t, "coll1", nil)
	require.NoError(t, b.Load(Checkpoint{RootObjectID: 0}))

	f, err := os.OpenFile(objectPath(b, 1), os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	assert.True(errors.Is(flock(f, false), ErrWriteByOther))
	assert.True(errors.Is(flock(f, true), ErrWriteByOther))
}

func TestAccessors(t *testing.T) {
	assert := assertion.New(t)
	path := filepath.Join(t.TempDir(), "coll1")
	b, err := Open(path, 0o644, testOptions())
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Load(Checkpoint{RootObjectID: 6}))

	assert.Equal(path, b.Name())
	assert.Equal(ObjectID(7), b.ObjectID())
	assert.Equal(uint64(testAllocSize), b.Size())
	assert.True(b.HasObjects())
	assert.False(b.Pending())
}
