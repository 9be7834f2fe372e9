// Package objectstore keeps per-user blobs in an S3-compatible bucket.
// Objects live under "<partition>/<kind>/<name>".
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/romvault/internal/common"
	"github.com/dmitrijs2005/romvault/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// API is the subset of the S3 client the store relies on.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds connection settings for the bucket.
type Config struct {
	Region       string
	User         string
	Password     string
	BaseEndpoint string
	Bucket       string
}

type S3Store struct {
	api    API
	bucket string
	now    func() time.Time
}

// New builds an S3 client with static credentials and path-style addressing,
// which MinIO requires.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.User,
			cfg.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return NewWithAPI(client, cfg.Bucket), nil
}

func NewWithAPI(api API, bucket string) *S3Store {
	return &S3Store{api: api, bucket: bucket, now: time.Now}
}

func prefix(partition string, kind models.BlobKind) string {
	return partition + "/" + string(kind) + "/"
}

func objectKey(partition string, kind models.BlobKind, name string) string {
	return prefix(partition, kind) + name
}

// List returns every object of the given kind in the partition.
func (s *S3Store) List(ctx context.Context, partition string, kind models.BlobKind) ([]models.BlobInfo, error) {
	p := prefix(partition, kind)
	pager := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	})

	items := make([]models.BlobInfo, 0)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), p)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			items = append(items, models.BlobInfo{
				Name:         name,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return items, nil
}

// Get opens an object for reading. The caller closes the body.
func (s *S3Store) Get(ctx context.Context, partition string, kind models.BlobKind, name string) (io.ReadCloser, int64, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(partition, kind, name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, common.ErrorNotFound
		}
		return nil, 0, fmt.Errorf("s3 get: %w", err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

// Put stores body under name, replacing any existing object.
func (s *S3Store) Put(ctx context.Context, partition string, kind models.BlobKind, name string, body io.Reader, size int64) (*models.BlobInfo, error) {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(partition, kind, name)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put: %w", err)
	}
	return &models.BlobInfo{Name: name, Size: size, LastModified: s.now().UTC()}, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}
