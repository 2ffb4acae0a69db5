package bucket

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertS3Error(t *testing.T) {
	assert := assertion.New(t)
	assert.NoError(convertS3Error(nil))

	err := convertS3Error(awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil))
	assert.True(errors.Is(err, ErrObjectMissing))

	err = convertS3Error(awserr.New("NotFound", "not found", nil))
	assert.True(errors.Is(err, ErrObjectMissing))

	other := awserr.New("AccessDenied", "denied", nil)
	assert.Equal(error(other), convertS3Error(other))
}

func TestS3StorageStagesObjectsInCache(t *testing.T) {
	assert := assertion.New(t)
	sess := session.Must(session.NewSession(aws.NewConfig().WithRegion("us-east-1")))
	cacheDir := filepath.Join(t.TempDir(), "cache")
	storage, err := NewS3Storage(s3.New(sess), s3manager.NewUploader(sess), aws.String("tier-bucket"), "tables/", cacheDir)
	require.NoError(t, err)

	f, err := storage.Create("/data/coll1.00000002", os.O_RDWR|os.O_CREATE, 0o644)
	assert.NoError(err)
	assert.NoError(f.Close())

	_, err = os.Stat(filepath.Join(cacheDir, "coll1.00000002"))
	assert.NoError(err)
	assert.Equal(uint64(1), storage.Statistics().CreateCount)
	assert.Equal(aws.String("tables/coll1.00000002"), storage.key("coll1.00000002"))
}
