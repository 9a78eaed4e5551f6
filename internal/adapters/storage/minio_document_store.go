package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	minioclient "github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/minio"
)

// MinioDocumentStore keeps uploaded documents in an S3 compatible bucket.
// References are object keys.
type MinioDocumentStore struct {
	client *minioclient.Client
}

// NewMinioDocumentStore creates a new MinIO backed document store
func NewMinioDocumentStore(client *minioclient.Client) providers.DocumentStore {
	return &MinioDocumentStore{client: client}
}

// Put uploads data under key
func (s *MinioDocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.Client().PutObject(ctx, s.client.Bucket(), key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document %s: %w", key, err)
	}
	return key, nil
}

// Open streams the object stored under ref
func (s *MinioDocumentStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := s.client.Client().GetObject(ctx, s.client.Bucket(), ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(ref, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before streaming starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.mapError(ref, err)
	}
	return obj, nil
}

// Delete removes the object stored under ref
func (s *MinioDocumentStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.Client().RemoveObject(ctx, s.client.Bucket(), ref, minio.RemoveObjectOptions{}); err != nil {
		return s.mapError(ref, err)
	}
	return nil
}

func (s *MinioDocumentStore) mapError(ref string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", providers.ErrDocumentNotFound, ref)
	}
	return fmt.Errorf("document store error for %s: %w", ref, err)
}
