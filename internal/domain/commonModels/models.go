package commonModels

import (
	"context"
	"fmt"
	"time"
)

type Document struct {
	Id                  string    `json:"source_doc_id"`
	Name                string    `json:"doc_name"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
	ContentType         DocType   `json:"contentType"`
	PageCount           int       `json:"page_count"`
	ChunkCount          int       `json:"chunk_count"`
}

// DocChunk is one window of a document's extracted text. Start and End are
// character offsets, End exclusive.
type DocChunk struct {
	DocId   string `json:"source_doc_id"`
	DocName string `json:"doc_name"`
	Index   int    `json:"chunk_index"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Content string `json:"content"`
}

func (c DocChunk) Key() string {
	return ChunkKey(c.DocId, c.Index)
}

func (c DocChunk) Citation() string {
	return fmt.Sprintf("%s#%d", c.DocName, c.Index)
}

func ChunkKey(docId string, index int) string {
	return fmt.Sprintf("%s#%d", docId, index)
}

type ScoredChunk struct {
	Chunk DocChunk `json:"chunk"`
	Score float64  `json:"score"`
}

// RetrievalResult is ordered most similar first.
type RetrievalResult []ScoredChunk

// Sources returns the unique document names in retrieval order.
func (r RetrievalResult) Sources() []string {
	seen := make(map[string]struct{}, len(r))
	sources := make([]string, 0, len(r))
	for _, sc := range r {
		if _, ok := seen[sc.Chunk.DocName]; ok {
			continue
		}
		seen[sc.Chunk.DocName] = struct{}{}
		sources = append(sources, sc.Chunk.DocName)
	}
	return sources
}

// EmbeddingIdentity ties an index to the embedder that produced its vectors.
type EmbeddingIdentity struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

func (e EmbeddingIdentity) String() string {
	return fmt.Sprintf("%s/%s@%d", e.Provider, e.Model, e.Dimension)
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type CorpusStore interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, bool)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]Document, error)
	Clear(ctx context.Context) error
}
