package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
)

// LocalDocumentStore keeps documents on the local filesystem under root.
// References are slash separated paths relative to root.
type LocalDocumentStore struct {
	root string
}

// NewLocalDocumentStore creates the root directory if needed
func NewLocalDocumentStore(root string) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create document directory %s: %w", root, err)
	}
	return &LocalDocumentStore{root: root}, nil
}

var _ providers.DocumentStore = (*LocalDocumentStore)(nil)

func (s *LocalDocumentStore) path(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document reference %q", ref)
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data under key. The file is written to a temporary name and
// renamed so readers never see a partial document.
func (s *LocalDocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	target, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create document file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}

// Open opens the stored document
func (s *LocalDocumentStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	target, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", providers.ErrDocumentNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

// Delete removes the stored document
func (s *LocalDocumentStore) Delete(ctx context.Context, ref string) error {
	target, err := s.path(ref)
	if err != nil {
		return err
	}
	err = os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", providers.ErrDocumentNotFound, ref)
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
