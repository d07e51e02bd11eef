package ports

import (
	"context"
	"io"
)

// S3Client is the low-level object-storage client used to archive recorded
// utterances next to the session history.
type S3Client interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (publicURL string, err error)
}
