// internal/app/system/objstore/minio.go
package objstore

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures the MinIO backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // base for object URLs; defaults to endpoint/bucket
}

// Minio serves objects through the S3 backend in path-style mode. The
// MinIO client is kept for bucket administration, which S3 leaves to
// provisioning.
type Minio struct {
	*storage.S3
	admin  *minio.Client
	bucket string
}

func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	admin, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	base := cfg.PublicURL
	if base == "" {
		base = scheme + cfg.Endpoint + "/" + cfg.Bucket
	}
	s3, err := storage.NewS3(ctx, storage.S3Config{
		Bucket:          cfg.Bucket,
		Region:          "us-east-1",
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		Endpoint:        scheme + cfg.Endpoint,
		UsePathStyle:    true,
		BaseURL:         base,
	})
	if err != nil {
		return nil, err
	}
	return &Minio{S3: s3, admin: admin, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket on first start.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.admin.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.admin.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *Minio) Backend() string { return "minio" }
