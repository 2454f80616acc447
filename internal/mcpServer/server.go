package mcpServer

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/RecallAPI/internal/rag"
	"github.com/akolanti/RecallAPI/internal/rag/ingest"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

// StatusSource reports the loaded corpus.
type StatusSource interface {
	Status(ctx context.Context) (ingest.Status, error)
}

// Server exposes the study pipeline to MCP clients.
type Server struct {
	ragService rag.Service
	retriever  rag.Retriever
	corpus     StatusSource
	server     *mcp.Server
	logger     *logger_i.Logger
}

func NewServer(ragService rag.Service, retriever rag.Retriever, corpus StatusSource) (*Server, error) {
	if ragService == nil || retriever == nil || corpus == nil {
		return nil, errors.New("mcp server needs the rag service, a retriever and a corpus")
	}

	s := &Server{
		ragService: ragService,
		retriever:  retriever,
		corpus:     corpus,
		server:     mcp.NewServer(&mcp.Implementation{Name: "recall", Version: Version}, nil),
		logger:     logger_i.NewLogger("MCP Server"),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Handler serves the streamable HTTP transport, mounted next to the REST routes.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
