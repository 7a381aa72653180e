// Package gcs stores screenshots in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config captures the bucket settings.
type Config struct {
	Bucket string
	// Prefix is prepended to every object path.
	Prefix string
	// PublicURLs returns https://storage.googleapis.com links instead of gs:// URIs.
	PublicURLs   bool
	CacheControl string
}

// BlobStore writes artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	cfg    Config
	owned  bool
}

// New wraps an existing client.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, eris.New("gcs: storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, eris.New("gcs: bucket name is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &BlobStore{client: client, cfg: cfg}, nil
}

// Open creates a client from application default credentials and checks
// that the bucket is reachable.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*BlobStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, eris.New("gcs: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "gcs: create client")
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close gcs client after bucket check", zap.Error(closeErr))
		}
		return nil, eris.Wrapf(err, "gcs: bucket %q attributes", cfg.Bucket)
	}
	bs, err := New(client, cfg)
	if err != nil {
		return nil, err
	}
	bs.owned = true
	return bs, nil
}

// ObjectName applies the configured prefix to p.
func (s *BlobStore) ObjectName(p string) string {
	if s.cfg.Prefix == "" {
		return p
	}
	return path.Join(s.cfg.Prefix, p)
}

// PutObject uploads data and returns its URI.
func (s *BlobStore) PutObject(ctx context.Context, p string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", eris.New("gcs: path is required")
	}
	name := s.ObjectName(p)
	writer := s.client.Bucket(s.cfg.Bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if s.cfg.CacheControl != "" {
		writer.CacheControl = s.cfg.CacheControl
	}
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", eris.Wrapf(err, "gcs: copy object (close writer: %v)", closeErr)
		}
		return "", eris.Wrap(err, "gcs: copy object")
	}
	if err := writer.Close(); err != nil {
		return "", eris.Wrap(err, "gcs: close writer")
	}
	return s.uri(name), nil
}

func (s *BlobStore) uri(name string) string {
	if s.cfg.PublicURLs {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.cfg.Bucket, name)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, name)
}

// Close closes the client when Open created it.
func (s *BlobStore) Close() error {
	if !s.owned {
		return nil
	}
	return eris.Wrap(s.client.Close(), "gcs: close client")
}
