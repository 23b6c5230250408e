// Package gcs archives raw search pages in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Config names the bucket and the attributes stamped on every page object.
type Config struct {
	Bucket       string
	CacheControl string
	Metadata     map[string]string
}

// Store writes page objects. Objects are create-only: when a page already
// exists it is left untouched and its URI is returned.
type Store struct {
	client       *storage.Client
	bucket       *storage.BucketHandle
	name         string
	cacheControl string
	metadata     map[string]string
}

// New creates a Store over an existing client, which Close releases.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{
		client:       client,
		bucket:       client.Bucket(cfg.Bucket),
		name:         cfg.Bucket,
		cacheControl: cfg.CacheControl,
		metadata:     maps.Clone(cfg.Metadata),
	}, nil
}

// PutObject uploads r to path and returns its gs:// URI.
func (s *Store) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	uri := fmt.Sprintf("gs://%s/%s", s.name, path)

	w := s.bucket.Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = s.cacheControl
	w.Metadata = maps.Clone(s.metadata)
	if _, err := io.Copy(w, r); err != nil {
		return "", errors.Join(fmt.Errorf("write %s: %w", uri, err), w.Close())
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			return uri, nil
		}
		return "", fmt.Errorf("upload %s: %w", uri, err)
	}
	return uri, nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

func alreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
