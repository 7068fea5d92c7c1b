package storage

import (
	"context"
	"io"
	"time"
)

// Service stores note attachments in object storage. Reads hand back
// short-lived presigned URLs so the bucket can stay private.
type Service interface {
	UploadObject(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}
