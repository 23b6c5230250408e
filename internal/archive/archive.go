// Package archive stores raw search API pages for later inspection.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/knowledgesync/internal/search"
)

const contentType = "application/json"

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Archiver writes each fetched page under prefix/run_id/.
type Archiver struct {
	store  BlobStore
	prefix string
}

// New constructs an Archiver.
func New(store BlobStore, prefix string) (*Archiver, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	return &Archiver{store: store, prefix: strings.Trim(prefix, "/")}, nil
}

// ArchivePage stores page.Raw and returns its URI.
func (a *Archiver) ArchivePage(ctx context.Context, runID string, page search.Page) (string, error) {
	uri, err := a.store.PutObject(ctx, a.pagePath(runID, page.Offset), contentType, bytes.NewReader(page.Raw))
	if err != nil {
		return "", fmt.Errorf("archive page at offset %d: %w", page.Offset, err)
	}
	return uri, nil
}

func (a *Archiver) pagePath(runID string, offset int) string {
	name := fmt.Sprintf("%s/page-%06d.json", runID, offset)
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}
