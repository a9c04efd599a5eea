// internal/app/system/objstore/objstore.go

// Package objstore opens the object store uploaded images go to. The
// backends themselves come from waffle's pantry/storage; this package picks
// one by storage_type and adds the key rules and cleanup FlySpot needs.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// Store is the object API handlers and the uploader depend on.
type Store = storage.Store

// BucketEnsurer is implemented by backends that can create their bucket.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// Config selects and configures a backend. Only the fields for Type are
// read.
type Config struct {
	Type      string // local | minio | s3 | gcs
	PublicURL string

	LocalPath string
	LocalURL  string

	Minio MinioConfig

	S3Region    string
	S3Bucket    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	GCSBucket          string
	GCSProjectID       string
	GCSCredentialsFile string
}

// Open builds the backend named by cfg.Type. Anything unrecognised is local.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "minio":
		m := cfg.Minio
		if m.PublicURL == "" {
			m.PublicURL = cfg.PublicURL
		}
		return NewMinio(ctx, m)
	case "s3":
		if strings.TrimSpace(cfg.S3Region) == "" {
			return nil, errors.New("s3 region is required")
		}
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3Endpoint != "",
			BaseURL:         cfg.PublicURL,
		})
	case "gcs":
		return storage.NewGCS(ctx, storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			ProjectID:       cfg.GCSProjectID,
			CredentialsFile: cfg.GCSCredentialsFile,
			BaseURL:         cfg.PublicURL,
		})
	default:
		return storage.NewLocal(storage.LocalConfig{
			BasePath: cfg.LocalPath,
			BaseURL:  cfg.LocalURL,
		})
	}
}

// Ready creates the bucket when the backend can, otherwise it lists one
// object to prove the store is reachable with the configured credentials.
func Ready(ctx context.Context, s Store) error {
	if be, ok := s.(BucketEnsurer); ok {
		return be.EnsureBucket(ctx)
	}
	if _, err := s.List(ctx, "", &storage.ListOptions{MaxKeys: 1}); err != nil {
		return fmt.Errorf("%s storage unreachable: %w", s.Backend(), err)
	}
	return nil
}

// ErrBadKey is returned for keys that are empty, absolute or climb out of
// the store root.
var ErrBadKey = errors.New("objstore: invalid key")

// CleanKey validates key and normalizes separators.
func CleanKey(key string) (string, error) {
	k := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if k == "" || strings.HasPrefix(k, "/") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(k, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrBadKey
		}
	}
	return k, nil
}

// Put validates key and uploads r with contentType.
func Put(ctx context.Context, s Store, key string, r io.Reader, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.Put(ctx, k, r, &storage.PutOptions{ContentType: contentType})
}

// DeleteAll removes keys best-effort. Missing objects count as deleted and
// other failures are logged, never returned: it runs after the database
// rows are already gone.
func DeleteAll(ctx context.Context, s Store, log *zap.Logger, keys []string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		err := s.Delete(ctx, k)
		if err == nil || errors.Is(err, storage.ErrNotFound) {
			continue
		}
		log.Warn("object delete failed", zap.String("key", k), zap.Error(err))
	}
}
