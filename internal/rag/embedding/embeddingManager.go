package embedding

import (
	"context"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
)

// Embedder turns text into vectors. Every vector it returns has
// Identity().Dimension elements.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	Identity() commonModels.EmbeddingIdentity
}
