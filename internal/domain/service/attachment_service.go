package service

import (
	"context"
	"io"
)

// AttachmentService uploads chat attachments to object storage under a
// per-user-scoped path and returns the public URL.
type AttachmentService interface {
	Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (string, error)
	Close() error
}
