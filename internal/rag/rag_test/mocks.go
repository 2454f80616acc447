package rag_test

import (
	"context"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
	"github.com/akolanti/RecallAPI/internal/telemetry"
)

// MockRetriever implements rag.Retriever
type MockRetriever struct {
	OnRetrieve func(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error)
	Calls      int
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) (commonModels.RetrievalResult, error) {
	m.Calls++
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, query, k)
	}
	return commonModels.RetrievalResult{{
		Chunk: commonModels.DocChunk{DocId: "d1", DocName: "lecture1.pdf", Index: 0, Content: "default context"},
		Score: 0.9,
	}}, nil
}

// MockChunkSource implements rag.ChunkSource
type MockChunkSource struct {
	OnChunks func(ctx context.Context) ([]commonModels.DocChunk, error)
}

func (m *MockChunkSource) Chunks(ctx context.Context) ([]commonModels.DocChunk, error) {
	if m.OnChunks != nil {
		return m.OnChunks(ctx)
	}
	return nil, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt llm.Prompt) (llm.Generation, error)
	Prompts    []llm.Prompt
}

func (m *MockLLM) Generate(ctx context.Context, prompt llm.Prompt) (llm.Generation, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return llm.Generation{Text: "mocked llm response", Tokens: 12, Model: "mock"}, nil
}

// MockSink implements telemetry.Sink and keeps every record.
type MockSink struct {
	Records []telemetry.Record
}

func (m *MockSink) Name() string { return "mock" }

func (m *MockSink) Append(_ context.Context, rec telemetry.Record) error {
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockSink) Close() error { return nil }
