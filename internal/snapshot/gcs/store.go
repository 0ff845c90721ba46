// Package gcs implements a snapshot store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/insightforge/webintel/internal/snapshot"
)

// Config captures the parameters required to target a GCS bucket.
type Config struct {
	Bucket      string
	Prefix      string
	ContentType string
}

// Store uploads markup snapshots to a GCS bucket.
type Store struct {
	client *storage.Client
	cfg    Config
}

// New creates a GCS-backed snapshot store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{client: client, cfg: cfg}, nil
}

// Save uploads the markup and returns a gs:// URI.
func (s *Store) Save(ctx context.Context, pageURL string, markup []byte) (string, error) {
	path := snapshot.ObjectPath(s.cfg.Prefix, pageURL, markup)
	writer := s.client.Bucket(s.cfg.Bucket).Object(path).NewWriter(ctx)
	if s.cfg.ContentType != "" {
		writer.ContentType = s.cfg.ContentType
	}
	if _, err := writer.Write(markup); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, path), nil
}
