package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// CloudStorageClient uploads chat attachments to a Google Cloud Storage
// bucket and serves them through the public object URL.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Upload writes the attachment under a per-user-scoped path and returns the
// public URL recorded on the message row.
func (c *CloudStorageClient) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (string, error) {
	objectName := fmt.Sprintf("chat/%s/%s-%s%s",
		userID,
		uuid.New().String(),
		time.Now().Format("20060102150405"),
		extensionFor(contentType, filename),
	)

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, body); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy attachment to GCS: %v", err)
	}

	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

func extensionFor(contentType, filename string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	if ext := path.Ext(filename); ext != "" {
		return ext
	}
	return ".bin"
}
