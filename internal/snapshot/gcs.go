package snapshot

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// GCS writes snapshots to a Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS wraps an existing bucket handle.
func NewGCS(bucket *storage.BucketHandle, bucketName, prefix string) *GCS {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &GCS{bucket: bucket, name: bucketName, prefix: prefix}
}

// Put uploads one snapshot object and returns its gs:// URI.
func (g *GCS) Put(ctx context.Context, number string, body []byte) (string, error) {
	object := fmt.Sprintf("%s/%s/%s.html", g.prefix, sanitize(number), time.Now().UTC().Format("20060102T150405"))
	w := g.bucket.Object(object).NewWriter(ctx)
	w.ContentType = "text/html; charset=utf-8"
	if _, err := w.Write(body); err != nil {
		w.Close()
		return "", fmt.Errorf("write snapshot object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize snapshot object: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", g.name, object), nil
}
