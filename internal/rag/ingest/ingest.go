package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/metrics"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB"
	"github.com/akolanti/RecallAPI/internal/worker"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

// Service turns uploaded documents into indexed chunks and keeps the corpus
// catalog in step with the index.
type Service struct {
	extractor    Extractor
	chunker      *Chunker
	embedder     embedding.Embedder
	index        vectorDB.Index
	catalog      commonModels.CorpusStore
	pool         *worker.Pool
	maxDocuments int
	batchSize    int

	// serialises corpus writes so the document limit holds under concurrent uploads
	mu     sync.Mutex
	logger *logger_i.Logger
}

type Options struct {
	MaxDocuments int
	BatchSize    int
}

func NewService(extractor Extractor, chunker *Chunker, embedder embedding.Embedder, index vectorDB.Index,
	catalog commonModels.CorpusStore, pool *worker.Pool, opts Options) *Service {
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = config.MaxDocuments
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.EmbeddingBatchSize
	}
	return &Service{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		catalog:      catalog,
		pool:         pool,
		maxDocuments: opts.MaxDocuments,
		batchSize:    opts.BatchSize,
		logger:       logger_i.NewLogger("Document Ingestion"),
	}
}

// IngestFile extracts the file at path and indexes it under name.
func (s *Service) IngestFile(ctx context.Context, path, name string) (commonModels.Document, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "filename", name)

	if err := s.checkCapacity(ctx, DocumentID(name)); err != nil {
		return commonModels.Document{}, err
	}

	log.Debug("Processing document", "path", path)
	extraction, err := s.extractor.Extract(ctx, path)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return commonModels.Document{}, err
	}

	doc := commonModels.Document{
		Id:          DocumentID(name),
		Name:        name,
		ContentType: extraction.ContentType,
		PageCount:   extraction.PageCount,
	}
	return s.indexDocument(ctx, doc, extraction.Text)
}

// IngestText indexes already extracted text as a single-page document.
func (s *Service) IngestText(ctx context.Context, name, text string) (commonModels.Document, error) {
	doc := commonModels.Document{
		Id:          DocumentID(name),
		Name:        name,
		ContentType: commonModels.TXT,
		PageCount:   1,
	}
	if err := s.checkCapacity(ctx, doc.Id); err != nil {
		return commonModels.Document{}, err
	}
	return s.indexDocument(ctx, doc, text)
}

func (s *Service) checkCapacity(ctx context.Context, docId string) error {
	if _, exists := s.catalog.GetDocument(ctx, docId); exists {
		return nil
	}
	docs, err := s.catalog.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("listing corpus: %w", err)
	}
	if len(docs) >= s.maxDocuments {
		return fmt.Errorf("%w: %d documents loaded, maximum is %d", ragErrors.ErrCorpusFull, len(docs), s.maxDocuments)
	}
	return nil
}

func (s *Service) indexDocument(ctx context.Context, doc commonModels.Document, text string) (commonModels.Document, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "docId", doc.Id)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	chunks, err := s.chunker.Chunk(doc, normalizeText(text))
	if err != nil {
		return commonModels.Document{}, err
	}
	log.Debug("Processing document", "chunks", len(chunks))

	// embed before touching the index so a failed upload keeps the previous version
	vectors, err := embedChunks(ctx, s.pool, s.embedder, chunks, s.batchSize)
	if err != nil {
		log.Error("embedding failed", "error", err)
		return commonModels.Document{}, err
	}

	if err := checkVectors(vectors, s.embedder.Identity().Dimension); err != nil {
		log.Error("embedder returned unusable vectors", "error", err)
		return commonModels.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCapacity(ctx, doc.Id); err != nil {
		return commonModels.Document{}, err
	}

	// the write phase finishes even if the caller goes away
	writeCtx := context.WithoutCancel(ctx)
	if err := s.index.RemoveAll(writeCtx, doc.Id); err != nil {
		return commonModels.Document{}, fmt.Errorf("removing previous version: %w", err)
	}
	for i, chunk := range chunks {
		if err := s.index.Insert(writeCtx, chunk, vectors[i]); err != nil {
			log.Error("index insert failed", "chunk", i, "error", err)
			s.dropDocument(writeCtx, doc.Id)
			return commonModels.Document{}, fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	doc.ChunkCount = len(chunks)
	doc.LastIngestTimestamp = time.Now().UTC()
	if err := s.catalog.SaveDocument(writeCtx, doc); err != nil {
		return commonModels.Document{}, fmt.Errorf("saving catalog entry: %w", err)
	}
	s.refreshGauge(writeCtx)

	log.Info("document indexed", "name", doc.Name, "chunks", doc.ChunkCount, "pages", doc.PageCount)
	return doc, nil
}

// dropDocument clears a half-written document from the index and the catalog.
// The previous version is already gone from the index at this point, so the
// catalog entry goes too.
func (s *Service) dropDocument(ctx context.Context, docId string) {
	if err := s.index.RemoveAll(ctx, docId); err != nil {
		s.logger.Error("could not remove partial document", "docId", docId, "error", err)
	}
	if err := s.catalog.DeleteDocument(ctx, docId); err != nil {
		s.logger.Error("could not remove catalog entry", "docId", docId, "error", err)
	}
	s.refreshGauge(ctx)
}

// Remove drops one document from the index and the catalog.
func (s *Service) Remove(ctx context.Context, docId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog.GetDocument(ctx, docId); !ok {
		return fmt.Errorf("%w: %s", ragErrors.ErrDocumentNotFound, docId)
	}
	if err := s.index.RemoveAll(ctx, docId); err != nil {
		return err
	}
	if err := s.catalog.DeleteDocument(ctx, docId); err != nil {
		return err
	}
	s.refreshGauge(ctx)
	s.logger.Info("document removed", "docId", docId)
	return nil
}

// Reset clears the index and the catalog.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	if err := s.catalog.Clear(ctx); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	metrics.SetIndexedChunks(0)
	s.logger.Info("corpus reset")
	return nil
}

// Restore brings the catalog in line with the index: documents found in the
// index but missing from the catalog are added, e.g. after a restart with an
// in-memory catalog, and catalog entries with no chunks in the index are
// dropped, e.g. after a restart with a Redis catalog over an in-memory index.
// It returns the number of entries added.
func (s *Service) Restore(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.index.Chunks(ctx)
	if err != nil {
		return 0, err
	}

	found := make(map[string]*commonModels.Document)
	var order []string
	for _, c := range chunks {
		doc, ok := found[c.DocId]
		if !ok {
			doc = &commonModels.Document{Id: c.DocId, Name: c.DocName, ContentType: getDocType(c.DocName)}
			found[c.DocId] = doc
			order = append(order, c.DocId)
		}
		doc.ChunkCount++
	}

	catalogued, err := s.catalog.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, doc := range catalogued {
		if _, ok := found[doc.Id]; ok {
			continue
		}
		if err := s.catalog.DeleteDocument(ctx, doc.Id); err != nil {
			return 0, err
		}
		pruned++
	}
	if pruned > 0 {
		s.logger.Info("dropped catalog entries missing from the index", "documents", pruned)
	}

	restored := 0
	for _, id := range order {
		if _, ok := s.catalog.GetDocument(ctx, id); ok {
			continue
		}
		if err := s.catalog.SaveDocument(ctx, *found[id]); err != nil {
			return restored, err
		}
		restored++
	}
	metrics.SetIndexedChunks(len(chunks))
	if restored > 0 {
		s.logger.Info("catalog restored from index", "documents", restored)
	}
	return restored, nil
}

// Status is a snapshot of the loaded corpus.
type Status struct {
	Documents   []commonModels.Document `json:"documents"`
	TotalChunks int                     `json:"total_chunks"`
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	docs, err := s.catalog.ListDocuments(ctx)
	if err != nil {
		return Status{}, err
	}
	size, err := s.index.Size(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Documents: docs, TotalChunks: size}, nil
}

func (s *Service) refreshGauge(ctx context.Context) {
	if size, err := s.index.Size(ctx); err == nil {
		metrics.SetIndexedChunks(size)
	}
}
