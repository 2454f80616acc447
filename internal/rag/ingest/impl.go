package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/internal/worker"
)

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// normalizeText unifies line endings and collapses runs of spaces and tabs.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DocumentID derives a stable id from the file name so a re-upload replaces
// the earlier version instead of adding a second copy.
func DocumentID(name string) string {
	sum := sha1.Sum([]byte(strings.ToLower(filepath.Base(name))))
	return hex.EncodeToString(sum[:])[:16]
}

// embedChunks embeds chunks in batches of batchSize, at most pool.Limit()
// batches in flight. The returned vectors line up with chunks.
func embedChunks(ctx context.Context, pool *worker.Pool, embedder embedding.Embedder, chunks []commonModels.DocChunk, batchSize int) ([][]float32, error) {
	batchSize = max(batchSize, 1)
	vectors := make([][]float32, len(chunks))
	batches := (len(chunks) + batchSize - 1) / batchSize

	err := pool.Run(ctx, batches, func(ctx context.Context, b int) error {
		start := b * batchSize
		end := min(start+batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		embedded, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch %d: %w", b, err)
		}
		if len(embedded) != len(texts) {
			return fmt.Errorf("embedding batch %d: got %d vectors for %d chunks", b, len(embedded), len(texts))
		}
		// each batch owns a disjoint range of vectors
		copy(vectors[start:end], embedded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// checkVectors rejects any vector whose length is not the bound dimension, so a
// bad embedding batch never reaches the index write phase.
func checkVectors(vectors [][]float32, dimension int) error {
	if dimension <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: chunk %d has %d values, expected %d", ragErrors.ErrDimensionMismatch, i, len(v), dimension)
		}
	}
	return nil
}
