package bucket

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// ErrObjectMissing is returned when a bucket object that should exist is
// absent from the remote store.
var ErrObjectMissing = errors.New("object not present in bucket")

func convertS3Error(err error) error {
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok {
			switch awsErr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				err = errors.Wrap(ErrObjectMissing, awsErr.Message())
			}
		}
	}
	return err
}

// S3Storage is a Storage that keeps writable objects in a local cache
// directory and uploads sealed objects to an S3 bucket on Flush.
type S3Storage struct {
	s3         *s3.S3
	uploader   *s3manager.Uploader
	bucketName *string
	keyPrefix  string
	cacheDir   string
	stats      Statistics
}

// NewS3Storage creates a Storage that uses an S3 bucket as its backing
// store. Objects are staged under cacheDir until flushed.
func NewS3Storage(api *s3.S3, uploader *s3manager.Uploader, bucketName *string, keyPrefix, cacheDir string) (*S3Storage, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create cache directory %s", cacheDir)
	}
	return &S3Storage{
		s3:         api,
		uploader:   uploader,
		bucketName: bucketName,
		keyPrefix:  keyPrefix,
		cacheDir:   cacheDir,
	}, nil
}

// Create opens a new writable object file in the cache directory.
func (s *S3Storage) Create(name string, flag int, mode os.FileMode) (*os.File, error) {
	s.stats.CreateCount++
	path := filepath.Join(s.cacheDir, filepath.Base(name))
	f, err := os.OpenFile(path, flag, mode)
	return f, errors.Wrapf(err, "cannot create cached object %s", path)
}

// Flush uploads the cached object to the bucket.
func (s *S3Storage) Flush(ctx context.Context, name string) error {
	s.stats.PutObjectCount++
	base := filepath.Base(name)
	f, err := os.Open(filepath.Join(s.cacheDir, base))
	if err != nil {
		return errors.Wrapf(err, "cannot read cached object %s", base)
	}
	defer f.Close()

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: s.bucketName,
		Key:    s.key(base),
		Body:   f,
	})
	return errors.Wrapf(convertS3Error(err), "cannot upload object %s", base)
}

// Exists reports whether the object has been uploaded to the bucket.
func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	s.stats.ObjectExistsCount++
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: s.bucketName,
		Key:    s.key(filepath.Base(name)),
	})
	if err != nil {
		err = convertS3Error(err)
		if errors.Is(err, ErrObjectMissing) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Statistics returns operation counters.
func (s *S3Storage) Statistics() Statistics {
	return s.stats
}

func (s *S3Storage) key(base string) *string {
	return aws.String(s.keyPrefix + base)
}
