package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/storage"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
)

func TestLocalDocumentStore_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := storage.NewLocalDocumentStore(root)
	require.NoError(t, err)

	ref, err := store.Put(ctx, "patient-1/report-1.pdf", []byte("%PDF-1.4 body"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "patient-1/report-1.pdf", ref)

	rc, err := store.Open(ctx, ref)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4 body", string(body))

	entries, err := os.ReadDir(filepath.Join(root, "patient-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Open(ctx, ref)
	assert.ErrorIs(t, err, providers.ErrDocumentNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ref), providers.ErrDocumentNotFound)
}

func TestLocalDocumentStore_RejectsEscapingReferences(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalDocumentStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"../outside.pdf", "a/../../outside.pdf", "/etc/passwd", ""} {
		_, err := store.Put(ctx, ref, []byte("x"), "")
		assert.Error(t, err, ref)
		_, err = store.Open(ctx, ref)
		assert.Error(t, err, ref)
	}
}
