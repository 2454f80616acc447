package memoryIndex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB"
)

type entry struct {
	chunk  commonModels.DocChunk
	vector []float32
	norm   float64
}

// Index is a brute-force in-process index guarded by a RWMutex.
type Index struct {
	mu        sync.RWMutex
	identity  commonModels.EmbeddingIdentity
	bound     bool
	entries   map[string]entry
	docs      map[string]map[string]struct{}
	populated bool
}

func New() *Index {
	return &Index{
		entries: make(map[string]entry),
		docs:    make(map[string]map[string]struct{}),
	}
}

func (ix *Index) Bind(_ context.Context, identity commonModels.EmbeddingIdentity) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.bound && ix.identity != identity {
		return fmt.Errorf("%w: bound to %s, got %s", ragErrors.ErrIdentityMismatch, ix.identity, identity)
	}
	ix.identity = identity
	ix.bound = true
	return nil
}

func (ix *Index) Identity() (commonModels.EmbeddingIdentity, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.identity, ix.bound
}

func (ix *Index) checkDimension(vector []float32) error {
	if ix.bound && len(vector) != ix.identity.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ragErrors.ErrDimensionMismatch, ix.identity.Dimension, len(vector))
	}
	return nil
}

func (ix *Index) Insert(_ context.Context, chunk commonModels.DocChunk, vector []float32) error {
	e := entry{
		chunk:  chunk,
		vector: slices.Clone(vector),
	}
	e.norm = vectorDB.Norm(e.vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.checkDimension(vector); err != nil {
		return err
	}
	ix.put(e)
	return nil
}

func (ix *Index) put(e entry) {
	key := e.chunk.Key()
	ix.entries[key] = e
	keys, ok := ix.docs[e.chunk.DocId]
	if !ok {
		keys = make(map[string]struct{})
		ix.docs[e.chunk.DocId] = keys
	}
	keys[key] = struct{}{}
	ix.populated = true
}

func (ix *Index) RemoveAll(_ context.Context, docId string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for key := range ix.docs[docId] {
		delete(ix.entries, key)
	}
	delete(ix.docs, docId)
	return nil
}

func (ix *Index) Query(ctx context.Context, vector []float32, k int) (commonModels.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ragErrors.ErrInvalidK, k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.checkDimension(vector); err != nil {
		return nil, err
	}
	if len(ix.entries) == 0 {
		return commonModels.RetrievalResult{}, nil
	}

	qNorm := vectorDB.Norm(vector)
	results := make([]commonModels.ScoredChunk, 0, len(ix.entries))
	for _, e := range ix.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, commonModels.ScoredChunk{
			Chunk: e.chunk,
			Score: vectorDB.CosineWithNorm(vector, qNorm, e.vector, e.norm),
		})
	}
	return vectorDB.RankTopK(results, k), nil
}

func (ix *Index) Size(_ context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries), nil
}

func (ix *Index) Populated() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.populated
}

func (ix *Index) Chunks(_ context.Context) ([]commonModels.DocChunk, error) {
	ix.mu.RLock()
	chunks := make([]commonModels.DocChunk, 0, len(ix.entries))
	for _, e := range ix.entries {
		chunks = append(chunks, e.chunk)
	}
	ix.mu.RUnlock()

	vectorDB.SortChunks(chunks)
	return chunks, nil
}

func (ix *Index) Reset(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = make(map[string]entry)
	ix.docs = make(map[string]map[string]struct{})
	ix.populated = false
	return nil
}

func (ix *Index) Close() error { return nil }
