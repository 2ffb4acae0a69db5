package bucket

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LocalStorage is a directory-backed Storage, useful for tests and for
// single-host tiering. Writable objects live under CacheDir; Flush copies a
// sealed object into BucketDir.
type LocalStorage struct {
	cacheDir  string
	bucketDir string
	stats     Statistics
}

// NewLocalStorage returns a Storage backed by two local directories.
func NewLocalStorage(cacheDir, bucketDir string) (*LocalStorage, error) {
	for _, dir := range []string{cacheDir, bucketDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "cannot create storage directory %s", dir)
		}
	}
	return &LocalStorage{cacheDir: cacheDir, bucketDir: bucketDir}, nil
}

// Create opens a new writable object file in the cache directory.
func (s *LocalStorage) Create(name string, flag int, mode os.FileMode) (*os.File, error) {
	s.stats.CreateCount++
	path := filepath.Join(s.cacheDir, filepath.Base(name))
	f, err := os.OpenFile(path, flag, mode)
	return f, errors.Wrapf(err, "cannot create cached object %s", path)
}

// Flush copies the cached object into the bucket directory.
func (s *LocalStorage) Flush(_ context.Context, name string) error {
	s.stats.PutObjectCount++
	base := filepath.Base(name)
	src, err := os.Open(filepath.Join(s.cacheDir, base))
	if err != nil {
		return errors.Wrapf(err, "cannot read cached object %s", base)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.bucketDir, base), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "cannot create bucket object %s", base)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "cannot copy object %s into bucket", base)
	}
	return errors.Wrapf(dst.Close(), "cannot close bucket object %s", base)
}

// Exists reports whether the object has been flushed into the bucket.
func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	s.stats.ObjectExistsCount++
	_, err := os.Stat(filepath.Join(s.bucketDir, filepath.Base(name)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cannot stat bucket object %s", name)
	}
	return true, nil
}

// Statistics returns operation counters.
func (s *LocalStorage) Statistics() Statistics {
	return s.stats
}
