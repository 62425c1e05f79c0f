package port

import (
	"context"
	"time"
)

// FileStorage issues presigned URLs against the upload bucket.
type FileStorage interface {
	UploadSignedURL(ctx context.Context, fileName, contentType string, expiry time.Duration) (string, error)
	DownloadSignedURL(ctx context.Context, fileName string, expiry time.Duration) (string, error)
}
