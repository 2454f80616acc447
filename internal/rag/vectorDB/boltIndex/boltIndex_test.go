package boltIndex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = commonModels.EmbeddingIdentity{Provider: "hash", Model: "hashed-bow-v1", Dimension: 3}

func chunk(doc string, idx int, content string) commonModels.DocChunk {
	return commonModels.DocChunk{DocId: doc, DocName: doc + ".txt", Index: idx, Start: idx * 10, End: idx*10 + 10, Content: content}
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "recall.db")

	ix, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ix.Bind(ctx, identity))
	require.NoError(t, ix.Insert(ctx, chunk("doc1", 0, "gradient descent"), []float32{1, 0, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("doc1", 1, "loss function"), []float32{0, 1, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("doc10", 0, "other"), []float32{0, 0, 1}))
	require.NoError(t, ix.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Bind(ctx, identity))

	assert.True(t, reopened.Populated())
	size, err := reopened.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	res, err := reopened.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "gradient descent", res[0].Chunk.Content)
}

func TestRemoveAllDoesNotTouchPrefixSiblings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recall.db")

	ix, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ix.Bind(ctx, identity))
	require.NoError(t, ix.Insert(ctx, chunk("doc1", 0, "a"), []float32{1, 0, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("doc10", 0, "b"), []float32{1, 0, 0}))
	require.NoError(t, ix.RemoveAll(ctx, "doc1"))
	require.NoError(t, ix.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	chunks, err := reopened.Chunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc10", chunks[0].DocId)
}

func TestIdentityMismatchRefusesToBind(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recall.db")

	ix, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ix.Bind(ctx, identity))
	require.NoError(t, ix.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	other := identity
	other.Provider = "openai"
	other.Model = "text-embedding-3-small"
	assert.ErrorIs(t, reopened.Bind(ctx, other), ragErrors.ErrIdentityMismatch)
}

func TestResetKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recall.db")

	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()
	require.NoError(t, ix.Bind(ctx, identity))
	require.NoError(t, ix.Insert(ctx, chunk("doc1", 0, "a"), []float32{1, 0, 0}))
	require.NoError(t, ix.Reset(ctx))

	assert.False(t, ix.Populated())
	size, _ := ix.Size(ctx)
	assert.Zero(t, size)
	assert.ErrorIs(t, ix.Insert(ctx, chunk("doc1", 0, "a"), []float32{1, 0}), ragErrors.ErrDimensionMismatch)
}
