package providers

import (
	"context"
	"errors"
	"io"
)

// ErrDocumentNotFound is returned when a stored document does not exist
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore keeps uploaded documents durably for later download
type DocumentStore interface {
	// Put stores the document under key and returns its reference
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Open streams a stored document
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete removes a stored document
	Delete(ctx context.Context, ref string) error
}
