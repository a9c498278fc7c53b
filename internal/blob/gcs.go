// Package blob stores delivery proof files in Google Cloud Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultPublicBaseURL = "https://storage.googleapis.com"

// GCS writes objects into one bucket and returns their public URL. The
// bucket is expected to be publicly readable.
type GCS struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCS creates a GCS store using application default credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, publicBaseURL: defaultPublicBaseURL}, nil
}

// Put uploads data to name and returns the object's public URL.
func (g *GCS) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", errors.New("object name is empty")
	}

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.ChunkSize = 0
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", name, err)
	}
	return PublicURL(g.publicBaseURL, g.bucket, name), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL joins base, bucket and the escaped object path, keeping the
// "/" separators of the path.
func PublicURL(base, bucket, objectPath string) string {
	if strings.TrimSpace(base) == "" {
		base = defaultPublicBaseURL
	}
	parts := strings.Split(objectPath, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.Join(parts, "/"))
}
