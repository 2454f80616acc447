package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akolanti/RecallAPI/internal/data/store"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/embedding"
	"github.com/akolanti/RecallAPI/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB/memoryIndex"
	"github.com/akolanti/RecallAPI/internal/worker"
)

// --- Mocks ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return m.batchFunc(ctx, chunks)
}
func (m *mockEmbedder) Identity() commonModels.EmbeddingIdentity {
	return commonModels.EmbeddingIdentity{Provider: "mock", Model: "mock", Dimension: 2}
}

func constantVectors(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, path string) (Extraction, error)
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (Extraction, error) {
	return m.extractFunc(ctx, path)
}

// failingIndex fails every Insert once failInsert is set.
type failingIndex struct {
	*memoryIndex.Index
	failInsert bool
}

func (f *failingIndex) Insert(ctx context.Context, chunk commonModels.DocChunk, vector []float32) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	return f.Index.Insert(ctx, chunk, vector)
}

type fixture struct {
	svc     *Service
	index   *memoryIndex.Index
	catalog *store.InMemoryCorpusStore
}

func newFixture(t *testing.T, size, overlap int, embedder embedding.Embedder, opts Options) fixture {
	t.Helper()
	chunker, err := NewChunker(size, overlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	index := memoryIndex.New()
	if err := index.Bind(context.Background(), embedder.Identity()); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	catalog := store.InitInMemoryCorpusStore()
	svc := NewService(NewFileExtractor(50, 0), chunker, embedder, index, catalog, worker.NewPool(2), opts)
	return fixture{svc: svc, index: index, catalog: catalog}
}

// --- Unit Tests ---

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"essay.odt", commonModels.DOCX},
		{"notes.txt", commonModels.TXT},
		{"image.png", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  Line one\r\nLine\t\t two   words\rend  ")
	want := "Line one\nLine two words\nend"
	if got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}

func TestDocumentID(t *testing.T) {
	if DocumentID("Lecture1.pdf") != DocumentID("uploads/lecture1.PDF") {
		t.Error("expected the id to ignore directory and case")
	}
	if DocumentID("a.pdf") == DocumentID("b.pdf") {
		t.Error("expected distinct ids for distinct names")
	}
	if len(DocumentID("a.pdf")) != 16 {
		t.Errorf("unexpected id length %d", len(DocumentID("a.pdf")))
	}
}

func TestEmbedChunks_Batches(t *testing.T) {
	chunks := make([]commonModels.DocChunk, 250)
	for i := range chunks {
		chunks[i] = commonModels.DocChunk{Index: i, Content: "content"}
	}

	var calls atomic.Int32
	emb := &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
		calls.Add(1)
		return constantVectors(ctx, ch)
	}}

	vectors, err := embedChunks(context.Background(), worker.NewPool(3), emb, chunks, 100)
	if err != nil {
		t.Fatalf("embedChunks failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 batches, got %d", calls.Load())
	}
	if len(vectors) != 250 {
		t.Fatalf("expected 250 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if v == nil {
			t.Fatalf("vector %d missing", i)
		}
	}
}

func TestEmbedChunks_ShortBatch(t *testing.T) {
	emb := &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}}
	chunks := []commonModels.DocChunk{{Content: "a"}, {Content: "b"}}
	if _, err := embedChunks(context.Background(), worker.NewPool(1), emb, chunks, 10); err == nil {
		t.Error("expected an error when the embedder returns fewer vectors than chunks")
	}
}

func TestIngestText(t *testing.T) {
	emb, err := hashEmbedding.NewEmbedder(64)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, 40, 10, emb, Options{})
	ctx := context.Background()

	text := strings.Repeat("Backpropagation computes gradients layer by layer. ", 4)
	doc, err := f.svc.IngestText(ctx, "nn.txt", text)
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if doc.Id != DocumentID("nn.txt") || doc.ChunkCount == 0 {
		t.Errorf("unexpected document %+v", doc)
	}
	size, _ := f.index.Size(ctx)
	if size != doc.ChunkCount {
		t.Errorf("index holds %d chunks, catalog says %d", size, doc.ChunkCount)
	}
	if !f.index.Populated() {
		t.Error("index should be populated after ingestion")
	}

	status, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status.Documents) != 1 || status.TotalChunks != size {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestIngestText_Empty(t *testing.T) {
	f := newFixture(t, 40, 10, &mockEmbedder{batchFunc: constantVectors}, Options{})
	_, err := f.svc.IngestText(context.Background(), "blank.txt", " \n\t ")
	if !errors.Is(err, ragErrors.ErrExtractionEmpty) {
		t.Errorf("expected ErrExtractionEmpty, got %v", err)
	}
	if _, found := f.catalog.GetDocument(context.Background(), DocumentID("blank.txt")); found {
		t.Error("empty document must not be catalogued")
	}
}

func TestIngest_CorpusFull(t *testing.T) {
	f := newFixture(t, 40, 10, &mockEmbedder{batchFunc: constantVectors}, Options{MaxDocuments: 2})
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := f.svc.IngestText(ctx, name, "some lecture text"); err != nil {
			t.Fatalf("IngestText(%s) failed: %v", name, err)
		}
	}
	if _, err := f.svc.IngestText(ctx, "c.txt", "more text"); !errors.Is(err, ragErrors.ErrCorpusFull) {
		t.Errorf("expected ErrCorpusFull, got %v", err)
	}
	// re-uploading a loaded document is still allowed
	if _, err := f.svc.IngestText(ctx, "a.txt", "updated text"); err != nil {
		t.Errorf("re-upload should succeed, got %v", err)
	}
}

func TestIngest_ReindexReplacesChunks(t *testing.T) {
	f := newFixture(t, 20, 5, &mockEmbedder{batchFunc: constantVectors}, Options{})
	ctx := context.Background()

	if _, err := f.svc.IngestText(ctx, "week1.txt", strings.Repeat("x", 200)); err != nil {
		t.Fatal(err)
	}
	doc, err := f.svc.IngestText(ctx, "week1.txt", "short text")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ChunkCount != 1 {
		t.Errorf("expected 1 chunk after re-index, got %d", doc.ChunkCount)
	}
	size, _ := f.index.Size(ctx)
	if size != 1 {
		t.Errorf("stale chunks left in index: size %d", size)
	}
}

func TestIngest_EmbeddingFailureKeepsPreviousVersion(t *testing.T) {
	fail := false
	emb := &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
		if fail {
			return nil, errors.New("quota exceeded")
		}
		return constantVectors(ctx, ch)
	}}
	f := newFixture(t, 20, 5, emb, Options{})
	ctx := context.Background()

	first, err := f.svc.IngestText(ctx, "week2.txt", strings.Repeat("y", 60))
	if err != nil {
		t.Fatal(err)
	}
	fail = true
	if _, err := f.svc.IngestText(ctx, "week2.txt", "replacement"); err == nil {
		t.Fatal("expected embedding failure")
	}
	size, _ := f.index.Size(ctx)
	if size != first.ChunkCount {
		t.Errorf("previous version lost: size %d, want %d", size, first.ChunkCount)
	}
}

func TestIngest_WrongDimensionKeepsPreviousVersion(t *testing.T) {
	dims := 2
	emb := &mockEmbedder{batchFunc: func(ctx context.Context, ch []string) ([][]float32, error) {
		out := make([][]float32, len(ch))
		for i := range out {
			out[i] = make([]float32, dims)
			out[i][0] = 1
		}
		return out, nil
	}}
	f := newFixture(t, 20, 5, emb, Options{})
	ctx := context.Background()

	first, err := f.svc.IngestText(ctx, "a.txt", strings.Repeat("z", 60))
	if err != nil {
		t.Fatal(err)
	}
	dims = 3
	if _, err := f.svc.IngestText(ctx, "a.txt", strings.Repeat("w", 60)); !errors.Is(err, ragErrors.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	size, _ := f.index.Size(ctx)
	got, found := f.catalog.GetDocument(ctx, first.Id)
	if size != first.ChunkCount || !found || got.ChunkCount != size {
		t.Errorf("index size %d, catalog entry %+v (found=%v); want both at %d chunks", size, got, found, first.ChunkCount)
	}
}

func TestIngest_InsertFailureDropsCatalogEntry(t *testing.T) {
	f := newFixture(t, 20, 5, &mockEmbedder{batchFunc: constantVectors}, Options{})
	failing := &failingIndex{Index: f.index}
	f.svc.index = failing
	ctx := context.Background()

	first, err := f.svc.IngestText(ctx, "b.txt", strings.Repeat("q", 60))
	if err != nil {
		t.Fatal(err)
	}
	failing.failInsert = true
	if _, err := f.svc.IngestText(ctx, "b.txt", strings.Repeat("r", 60)); err == nil {
		t.Fatal("expected insert failure")
	}

	if size, _ := f.index.Size(ctx); size != 0 {
		t.Errorf("partial document left in index: size %d", size)
	}
	if _, found := f.catalog.GetDocument(ctx, first.Id); found {
		t.Error("catalog still lists a document the index no longer holds")
	}
	status, err := f.svc.Status(ctx)
	if err != nil || len(status.Documents) != 0 || status.TotalChunks != 0 {
		t.Errorf("Status = %+v, %v; want an empty corpus", status, err)
	}
}

func TestRestore_DropsEntriesMissingFromIndex(t *testing.T) {
	f := newFixture(t, 40, 10, &mockEmbedder{batchFunc: constantVectors}, Options{MaxDocuments: 1})
	ctx := context.Background()

	stale := commonModels.Document{Id: DocumentID("old.pdf"), Name: "old.pdf", ContentType: commonModels.PDF, ChunkCount: 7}
	if err := f.catalog.SaveDocument(ctx, stale); err != nil {
		t.Fatal(err)
	}

	restored, err := f.svc.Restore(ctx)
	if err != nil || restored != 0 {
		t.Errorf("Restore = %d, %v; want 0, nil", restored, err)
	}
	docs, _ := f.catalog.ListDocuments(ctx)
	if len(docs) != 0 {
		t.Errorf("stale catalog entries kept: %+v", docs)
	}
	if _, err := f.svc.IngestText(ctx, "new.txt", "fresh lecture notes"); err != nil {
		t.Errorf("upload into an empty index refused: %v", err)
	}
}

func TestIngestFile_Text(t *testing.T) {
	emb, err := hashEmbedding.NewEmbedder(64)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, 500, 100, emb, Options{})

	path := filepath.Join(t.TempDir(), "gd.txt")
	content := "Gradient descent minimizes a loss function by iteratively updating parameters."
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := f.svc.IngestFile(context.Background(), path, "gd.txt")
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if doc.ContentType != commonModels.TXT || doc.ChunkCount != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
	chunks, _ := f.index.Chunks(context.Background())
	if len(chunks) != 1 || chunks[0].Content != content {
		t.Errorf("unexpected chunks %+v", chunks)
	}
}

func TestIngestFile_ExtractionError(t *testing.T) {
	f := newFixture(t, 40, 10, &mockEmbedder{batchFunc: constantVectors}, Options{})
	f.svc.extractor = &mockExtractor{extractFunc: func(ctx context.Context, path string) (Extraction, error) {
		return Extraction{}, ragErrors.ErrTooManyPages
	}}
	if _, err := f.svc.IngestFile(context.Background(), "/tmp/big.pdf", "big.pdf"); !errors.Is(err, ragErrors.ErrTooManyPages) {
		t.Errorf("expected ErrTooManyPages, got %v", err)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := NewFileExtractor(50, 0).Extract(context.Background(), "slides.pptx")
	if !errors.Is(err, ragErrors.ErrUnsupportedDocument) {
		t.Errorf("expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestRemoveResetRestore(t *testing.T) {
	f := newFixture(t, 40, 10, &mockEmbedder{batchFunc: constantVectors}, Options{})
	ctx := context.Background()

	a, _ := f.svc.IngestText(ctx, "a.txt", "alpha text")
	if _, err := f.svc.IngestText(ctx, "b.txt", "beta text"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Remove(ctx, "missing"); !errors.Is(err, ragErrors.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := f.svc.Remove(ctx, a.Id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if size, _ := f.index.Size(ctx); size != 1 {
		t.Errorf("expected 1 chunk after remove, got %d", size)
	}

	// a fresh catalog over the same index picks the documents back up
	f.svc.catalog = store.InitInMemoryCorpusStore()
	restored, err := f.svc.Restore(ctx)
	if err != nil || restored != 1 {
		t.Errorf("Restore = %d, %v; want 1, nil", restored, err)
	}
	got, found := f.svc.catalog.GetDocument(ctx, DocumentID("b.txt"))
	if !found || got.Name != "b.txt" || got.ChunkCount != 1 {
		t.Errorf("unexpected restored entry %+v", got)
	}

	if err := f.svc.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if f.index.Populated() {
		t.Error("index should not be populated after reset")
	}
	docs, _ := f.svc.catalog.ListDocuments(ctx)
	if len(docs) != 0 {
		t.Errorf("catalog not cleared: %d documents", len(docs))
	}
}
