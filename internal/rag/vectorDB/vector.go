package vectorDB

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
)

// Index stores chunk vectors and answers cosine similarity queries.
// Implementations allow concurrent readers and serialise writers; a Query that
// starts after an Insert returns observes that insert.
type Index interface {
	// Bind fixes the embedding identity of the index. A persisted index built
	// with another identity fails with ragErrors.ErrIdentityMismatch.
	Bind(ctx context.Context, identity commonModels.EmbeddingIdentity) error
	Insert(ctx context.Context, chunk commonModels.DocChunk, vector []float32) error
	RemoveAll(ctx context.Context, docId string) error
	Query(ctx context.Context, vector []float32, k int) (commonModels.RetrievalResult, error)
	Size(ctx context.Context) (int, error)
	// Populated reports whether anything was inserted since the last Reset.
	Populated() bool
	Chunks(ctx context.Context) ([]commonModels.DocChunk, error)
	Reset(ctx context.Context) error
	Close() error
}

// CosineSimilarity is dot(a,b)/(|a||b|), or 0 when either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	return CosineWithNorm(a, Norm(a), b, Norm(b))
}

func CosineWithNorm(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	n := min(len(a), len(b))
	dot := 0.0
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func Norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CompareScored orders by score descending, then document id and chunk index ascending.
func CompareScored(a, b commonModels.ScoredChunk) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Chunk.DocId, b.Chunk.DocId); c != 0 {
		return c
	}
	return cmp.Compare(a.Chunk.Index, b.Chunk.Index)
}

// RankTopK sorts results in place with CompareScored and keeps the first k.
func RankTopK(results []commonModels.ScoredChunk, k int) commonModels.RetrievalResult {
	slices.SortFunc(results, CompareScored)
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// SortChunks orders chunks by document id then chunk index.
func SortChunks(chunks []commonModels.DocChunk) {
	slices.SortFunc(chunks, func(a, b commonModels.DocChunk) int {
		if c := cmp.Compare(a.DocId, b.DocId); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
}
