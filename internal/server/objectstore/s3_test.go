package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	pages   []*s3.ListObjectsV2Output
	listIn  []*s3.ListObjectsV2Input
	listErr error

	getIn  *s3.GetObjectInput
	getOut *s3.GetObjectOutput
	getErr error

	putIn   *s3.PutObjectInput
	putBody []byte
	putErr  error
}

func (f *fakeAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listIn = append(f.listIn, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	i := len(f.listIn) - 1
	return f.pages[i], nil
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getIn = in
	return f.getOut, f.getErr
}

func (f *fakeAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.putBody = b
	}
	return &s3.PutObjectOutput{}, f.putErr
}

func TestList_PaginatesAndStripsPrefix(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: []*s3.ListObjectsV2Output{
		{
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
			Contents: []types.Object{
				{Key: aws.String("p1/rom/zelda.gba"), Size: aws.Int64(10), LastModified: aws.Time(ts)},
				{Key: aws.String("p1/rom/nested/skip.gba"), Size: aws.Int64(1)},
			},
		},
		{
			IsTruncated: aws.Bool(false),
			Contents: []types.Object{
				{Key: aws.String("p1/rom/metroid.gba"), Size: aws.Int64(20), LastModified: aws.Time(ts)},
			},
		},
	}}
	st := NewWithAPI(api, "bucket")

	got, err := st.List(context.Background(), "p1", models.BlobKindROM)
	require.NoError(t, err)
	require.Len(t, api.listIn, 2)
	assert.Equal(t, "p1/rom/", aws.ToString(api.listIn[0].Prefix))
	assert.Equal(t, "bucket", aws.ToString(api.listIn[0].Bucket))
	assert.Equal(t, "next", aws.ToString(api.listIn[1].ContinuationToken))
	assert.Equal(t, []models.BlobInfo{
		{Name: "zelda.gba", Size: 10, LastModified: ts},
		{Name: "metroid.gba", Size: 20, LastModified: ts},
	}, got)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	api := &fakeAPI{pages: []*s3.ListObjectsV2Output{{IsTruncated: aws.Bool(false)}}}
	got, err := NewWithAPI(api, "b").List(context.Background(), "p1", models.BlobKindSave)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_Error(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("boom")}
	_, err := NewWithAPI(api, "b").List(context.Background(), "p1", models.BlobKindSave)
	require.ErrorContains(t, err, "s3 list")
}

func TestGet(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		api := &fakeAPI{getOut: &s3.GetObjectOutput{
			Body:          io.NopCloser(bytes.NewReader([]byte("data"))),
			ContentLength: aws.Int64(4),
		}}
		rc, size, err := NewWithAPI(api, "b").Get(context.Background(), "p1", models.BlobKindSave, "slot1.sav")
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "data", string(b))
		assert.EqualValues(t, 4, size)
		assert.Equal(t, "p1/save/slot1.sav", aws.ToString(api.getIn.Key))
	})

	t.Run("no such key", func(t *testing.T) {
		api := &fakeAPI{getErr: &types.NoSuchKey{}}
		_, _, err := NewWithAPI(api, "b").Get(context.Background(), "p1", models.BlobKindSave, "x")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		api := &fakeAPI{getErr: &types.NotFound{}}
		_, _, err := NewWithAPI(api, "b").Get(context.Background(), "p1", models.BlobKindSave, "x")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("other", func(t *testing.T) {
		api := &fakeAPI{getErr: errors.New("conn reset")}
		_, _, err := NewWithAPI(api, "b").Get(context.Background(), "p1", models.BlobKindSave, "x")
		require.Error(t, err)
		require.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestPut(t *testing.T) {
	now := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	api := &fakeAPI{}
	st := NewWithAPI(api, "b")
	st.now = func() time.Time { return now }

	info, err := st.Put(context.Background(), "p1", models.BlobKindROM, "game.gba", bytes.NewReader([]byte("abc")), 3)
	require.NoError(t, err)
	assert.Equal(t, &models.BlobInfo{Name: "game.gba", Size: 3, LastModified: now}, info)
	assert.Equal(t, "p1/rom/game.gba", aws.ToString(api.putIn.Key))
	assert.EqualValues(t, 3, aws.ToInt64(api.putIn.ContentLength))
	assert.Equal(t, "application/octet-stream", aws.ToString(api.putIn.ContentType))
	assert.Equal(t, "abc", string(api.putBody))

	api.putErr = errors.New("denied")
	_, err = st.Put(context.Background(), "p1", models.BlobKindROM, "game.gba", bytes.NewReader(nil), 0)
	require.ErrorContains(t, err, "s3 put")
}

func TestNew_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", creds.AccessKeyID)
		assert.Equal(t, "pw", creds.SecretAccessKey)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	st, err := New(context.Background(), Config{
		Region:       "eu-west-1",
		User:         "admin",
		Password:     "pw",
		BaseEndpoint: "http://minio:9000",
		Bucket:       "vault",
	})
	require.NoError(t, err)
	assert.Equal(t, "vault", st.bucket)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
}

func TestNew_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}

	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "aws config")
}
