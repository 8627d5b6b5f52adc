package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultBucket holds product images.
const DefaultBucket = "product-images"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is prepended to bucket/path in returned URLs. Defaults
	// to the endpoint URL.
	PublicBaseURL string
}

// ImageStore keeps product images in an S3 compatible bucket with public
// read access.
type ImageStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func NewImageStore(cfg Config) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = client.EndpointURL().String()
	}

	return &ImageStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(base, "/"),
	}, nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// EnsureBucket creates the bucket with a public read policy if missing.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket %s: %w", store.ErrBackendUnavailable, s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: create bucket %s: %w", store.ErrBackendUnavailable, s.bucket, err)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("%w: set policy on %s: %w", store.ErrBackendUnavailable, s.bucket, err)
	}
	log.Printf("[ImageStore] Created bucket %s", s.bucket)
	return nil
}

// Upload stores r under path and returns its public URL. size may be -1
// when unknown.
func (s *ImageStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", store.ErrUpload, path, err)
	}
	return s.PublicURL(path), nil
}

// PublicURL returns the URL an uploaded object is served from.
func (s *ImageStore) PublicURL(path string) string {
	return s.publicBase + "/" + s.bucket + "/" + strings.TrimLeft(path, "/")
}
