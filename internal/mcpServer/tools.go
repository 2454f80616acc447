package mcpServer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const statusURI = "recall://status"

type AskInput struct {
	Query    string `json:"query" jsonschema:"the question about the uploaded lecture material"`
	Mode     string `json:"mode,omitempty" jsonschema:"summary (default) or quiz"`
	QuizType string `json:"quiz_type,omitempty" jsonschema:"multiple_choice or short_answer, quiz mode only"`
}

type AskOutput struct {
	Answer  string   `json:"answer"`
	Pathway string   `json:"pathway"`
	Sources []string `json:"sources"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"text to look up in the lecture chunks"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 3)"`
}

type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type SearchResult struct {
	DocumentId   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question or build a quiz question from the uploaded lectures",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Return the lecture chunks most similar to a query",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	resp := s.ragService.Handle(ctx, queryModel.Request{
		Query:    input.Query,
		Mode:     queryModel.ParseMode(input.Mode),
		QuizType: queryModel.ParseQuizType(input.QuizType),
	})
	if resp.Refused() {
		return nil, AskOutput{}, errors.New(resp.Refusal.Message)
	}
	return nil, AskOutput{Answer: resp.Answer, Pathway: string(resp.Pathway), Sources: resp.Sources}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = config.TopK
	}

	result, err := s.retriever.Retrieve(ctx, input.Query, limit)
	if err != nil {
		s.logger.Warn("search failed", "error", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResult, len(result)), Count: len(result)}
	for i, r := range result {
		output.Results[i] = SearchResult{
			DocumentId:   r.Chunk.DocId,
			DocumentName: r.Chunk.DocName,
			ChunkIndex:   r.Chunk.Index,
			Score:        r.Score,
			Content:      r.Chunk.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Description: "Documents loaded into the study corpus",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

func (s *Server) handleStatusResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	status, err := s.corpus.Status(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(raw),
		}},
	}, nil
}
