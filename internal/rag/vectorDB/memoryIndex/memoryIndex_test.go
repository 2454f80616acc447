package memoryIndex

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = commonModels.EmbeddingIdentity{Provider: "test", Model: "m", Dimension: 2}

func chunk(doc string, idx int) commonModels.DocChunk {
	return commonModels.DocChunk{DocId: doc, DocName: doc + ".pdf", Index: idx, Content: fmt.Sprintf("%s-%d", doc, idx)}
}

func newBound(t *testing.T) *Index {
	t.Helper()
	ix := New()
	require.NoError(t, ix.Bind(context.Background(), identity))
	return ix
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := newBound(t)
	res, err := ix.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.False(t, ix.Populated())
}

func TestQueryOrderingAndTieBreak(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)

	require.NoError(t, ix.Insert(ctx, chunk("b", 0), []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("a", 1), []float32{2, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("a", 0), []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("c", 0), []float32{0, 1}))

	res, err := ix.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 4)

	keys := make([]string, len(res))
	for i, r := range res {
		keys[i] = r.Chunk.Key()
	}
	// three exact ties at 1.0 ordered by doc then index, orthogonal last
	assert.Equal(t, []string{"a#0", "a#1", "b#0", "c#0"}, keys)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestQueryClipsToK(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, ix.Insert(ctx, chunk("a", i), []float32{1, float32(i)}))
	}
	res, err := ix.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = ix.Query(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, ragErrors.ErrInvalidK)
}

func TestInsertReplacesSameKey(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)
	require.NoError(t, ix.Insert(ctx, chunk("a", 0), []float32{1, 0}))
	updated := chunk("a", 0)
	updated.Content = "new"
	require.NoError(t, ix.Insert(ctx, updated, []float32{0, 1}))

	size, _ := ix.Size(ctx)
	assert.Equal(t, 1, size)
	chunks, _ := ix.Chunks(ctx)
	assert.Equal(t, "new", chunks[0].Content)
}

func TestInsertCopiesVector(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)
	v := []float32{1, 0}
	require.NoError(t, ix.Insert(ctx, chunk("a", 0), v))
	v[0], v[1] = 0, 1

	res, err := ix.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)
	assert.ErrorIs(t, ix.Insert(ctx, chunk("a", 0), []float32{1, 0, 0}), ragErrors.ErrDimensionMismatch)
	_, err := ix.Query(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, ragErrors.ErrDimensionMismatch)
}

func TestBindDifferentIdentity(t *testing.T) {
	ix := newBound(t)
	other := identity
	other.Model = "other"
	assert.ErrorIs(t, ix.Bind(context.Background(), other), ragErrors.ErrIdentityMismatch)
	assert.NoError(t, ix.Bind(context.Background(), identity))
}

func TestRemoveAllAndReset(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)
	require.NoError(t, ix.Insert(ctx, chunk("a", 0), []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("a", 1), []float32{1, 0}))
	require.NoError(t, ix.Insert(ctx, chunk("b", 0), []float32{1, 0}))

	require.NoError(t, ix.RemoveAll(ctx, "a"))
	chunks, _ := ix.Chunks(ctx)
	require.Len(t, chunks, 1)
	assert.Equal(t, "b", chunks[0].DocId)
	assert.True(t, ix.Populated())

	require.NoError(t, ix.Reset(ctx))
	size, _ := ix.Size(ctx)
	assert.Zero(t, size)
	assert.False(t, ix.Populated())
}

func TestConcurrentInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	ix := newBound(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = ix.Insert(ctx, chunk(fmt.Sprintf("doc%d", w), i), []float32{1, float32(i)})
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := ix.Query(ctx, []float32{1, 0}, 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(res), 3)
			}
		}()
	}
	wg.Wait()

	size, _ := ix.Size(ctx)
	assert.Equal(t, 200, size)
}
