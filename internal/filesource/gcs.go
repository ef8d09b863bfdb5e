package filesource

import (
	"context"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArchiver keeps a durable copy of every ingested raw file in a Cloud
// Storage bucket, under raw/<bank>/<file name>. Purely additive: the Drive
// "processed" move stays the source of ingestion state.
type GCSArchiver struct {
	bucket *storage.BucketHandle
}

// NewGCSArchiver wraps a storage client and target bucket.
func NewGCSArchiver(client *storage.Client, bucket string) *GCSArchiver {
	return &GCSArchiver{bucket: client.Bucket(bucket)}
}

// Archive uploads the file content. Assumes Application Default Credentials.
func (a *GCSArchiver) Archive(ctx context.Context, sourceBank, fileName string, content []byte) error {
	objectName := path.Join("raw", sourceBank, fileName)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.bucket.Object(objectName).NewWriter(ctx)
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs archive: write %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs archive: finalize %q: %w", objectName, err)
	}
	return nil
}
