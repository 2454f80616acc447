package hashEmbedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
)

// Embedder is a local bag-of-words embedder. Tokens are hashed into a fixed
// number of buckets, so it needs no vocabulary and no network. Vectors are
// L2-normalised; text without usable tokens gives the zero vector.
type Embedder struct {
	dimension    int
	model        string
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewEmbedder(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, errors.New("hash embedder dimension must be positive")
	}
	return &Embedder{
		dimension:    dimension,
		model:        config.HashEmbeddingModel,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}, nil
}

func (e *Embedder) Identity() commonModels.EmbeddingIdentity {
	return commonModels.EmbeddingIdentity{
		Provider:  config.EmbedderHash,
		Model:     e.model,
		Dimension: e.dimension,
	}
}

func (e *Embedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(query), nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(chunk)
	}
	return vectors, nil
}

func (e *Embedder) embed(text string) []float32 {
	counts := make([]float64, e.dimension)
	for _, tok := range e.tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimension))
		// the top bit picks a sign so colliding tokens tend to cancel rather than pile up
		if sum>>63 == 1 {
			counts[bucket]--
		} else {
			counts[bucket]++
		}
	}

	norm := 0.0
	for _, v := range counts {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec
	}
	for i, v := range counts {
		vec[i] = float32(v / norm)
	}
	return vec
}

// tokenize lowercases, keeps letter/number runs longer than two characters and
// drops stopwords.
func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if len([]rune(t)) <= 2 {
			continue
		}
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"the", "and", "but", "then", "else", "for", "was", "were", "been", "being", "this", "that",
		"these", "those", "from", "over", "under", "again", "further", "than", "such", "into",
		"about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "should", "now", "what", "which",
		"who", "whom", "how", "why", "when", "where", "are", "does", "did", "has", "have", "had",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
