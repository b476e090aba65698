package fs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fattura/internal/domain"
	fsstore "fattura/internal/storage/fs"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, domain.ArtifactXML, "001_20240115.xml")
	require.NoError(t, err)
	assert.False(t, ok)

	path, err := store.Write(ctx, domain.ArtifactXML, "001_20240115.xml", []byte("<xml/>"))
	require.NoError(t, err)
	assert.Contains(t, path, "xml")

	// A successful write is immediately visible to Exists and Read.
	ok, err = store.Exists(ctx, domain.ArtifactXML, "001_20240115.xml")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Read(ctx, domain.ArtifactXML, "001_20240115.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("<xml/>"), data)

	require.NoError(t, store.Delete(ctx, domain.ArtifactXML, "001_20240115.xml"))
	ok, err = store.Exists(ctx, domain.ArtifactXML, "001_20240115.xml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CategoriesAreSeparate(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Write(ctx, domain.ArtifactXML, "doc.xml", []byte("x"))
	require.NoError(t, err)

	ok, err := store.Exists(ctx, domain.ArtifactHTML, "doc.xml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ReadMissing(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read(context.Background(), domain.ArtifactPDF, "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), domain.ArtifactHTML, "missing.html"))
}
