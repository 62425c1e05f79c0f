package minio

import (
	"context"
	"fmt"
	"net/url"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// videoFolder prefixes every object key issued through signed URLs.
const videoFolder = "videos"

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Storage issues presigned upload and download URLs against the media
// bucket.
type Storage struct {
	client *miniogo.Client
	bucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) UploadSignedURL(ctx context.Context, fileName, contentType string, expiry time.Duration) (string, error) {
	objectKey := fmt.Sprintf("%s/%s", videoFolder, fileName)

	u, err := s.client.PresignHeader(ctx, "PUT", s.bucket, objectKey, expiry, url.Values{}, map[string][]string{
		"Content-Type": {contentType},
	})
	if err != nil {
		return "", fmt.Errorf("presign upload for %s: %w", objectKey, err)
	}
	return u.String(), nil
}

func (s *Storage) DownloadSignedURL(ctx context.Context, fileName string, expiry time.Duration) (string, error) {
	objectKey := fmt.Sprintf("%s/%s", videoFolder, fileName)

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download for %s: %w", objectKey, err)
	}
	return u.String(), nil
}
