package ingest

import (
	"fmt"
	"iter"
	"strings"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

// Span is a half-open character range [Start, End).
type Span struct {
	Start int
	End   int
}

// Chunker cuts text into fixed-size character windows where each window
// starts size-overlap characters after the previous one.
type Chunker struct {
	size    int
	overlap int
	logger  *logger_i.Logger
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ragErrors.ErrInvalidChunkParams, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap, logger: logger_i.NewLogger("chunker")}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Spans yields the window boundaries for a text of length characters. The
// sequence stops at the first window that reaches the end of the text.
func (c *Chunker) Spans(length int) iter.Seq[Span] {
	step := c.size - c.overlap
	return func(yield func(Span) bool) {
		for start := 0; start < length; start += step {
			end := min(start+c.size, length)
			if !yield(Span{Start: start, End: end}) || end == length {
				return
			}
		}
	}
}

// All yields the chunks of text for doc in index order. Offsets count runes.
// Each call walks the text from the start again.
func (c *Chunker) All(doc commonModels.Document, text string) iter.Seq2[int, commonModels.DocChunk] {
	runes := []rune(text)
	return func(yield func(int, commonModels.DocChunk) bool) {
		i := 0
		for span := range c.Spans(len(runes)) {
			chunk := commonModels.DocChunk{
				DocId:   doc.Id,
				DocName: doc.Name,
				Index:   i,
				Start:   span.Start,
				End:     span.End,
				Content: string(runes[span.Start:span.End]),
			}
			if !yield(i, chunk) {
				return
			}
			i++
		}
	}
}

// Chunk returns every chunk of text. Empty or whitespace-only text is an error,
// never an empty slice.
func (c *Chunker) Chunk(doc commonModels.Document, text string) ([]commonModels.DocChunk, error) {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("no text to chunk", "document", doc.Name)
		return nil, fmt.Errorf("%w: %s", ragErrors.ErrExtractionEmpty, doc.Name)
	}

	var chunks []commonModels.DocChunk
	for _, chunk := range c.All(doc, text) {
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
