// Package mcp exposes the knowledge base over the Model Context Protocol.
//
// The server speaks MCP over stdin/stdout and registers four tools:
// add_knowledge, query_knowledge, list_knowledge, and delete_knowledge.
// Tool results are JSON documents in a single text content block, and
// failures are reported as {"error": ...} with the IsError flag set so
// clients can keep the session alive.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/alejunco/mcp-kb/internal/knowledge"
)

const (
	serverName    = "mcp-kb"
	serverVersion = "1.0.0"

	defaultChunkSize    = 512
	defaultChunkOverlap = 50
	defaultTopK         = 5
	defaultMinScore     = 0
)

// Server wires the knowledge base service to MCP stdio transport.
type Server struct {
	mcpServer *mcpsdk.Server
	kb        *knowledge.Service
	logger    *zap.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(kb *knowledge.Service, logger *zap.Logger) (*Server, error) {
	if kb == nil {
		return nil, fmt.Errorf("knowledge service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		kb:        kb,
		logger:    logger,
	}
	s.registerTools()

	return s, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("transport", "stdio"))
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_knowledge",
		Description: "Add content to the knowledge base. The content is split into overlapping chunks, embedded, and stored with optional metadata for later filtering.",
	}, s.handleAddKnowledge)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "query_knowledge",
		Description: "Search the knowledge base by semantic similarity. Returns the closest chunks with scores and metadata, optionally restricted by an exact-match metadata filter and a minimum score.",
	}, s.handleQueryKnowledge)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_knowledge",
		Description: "Describe the knowledge base index: name, total stored chunks, vector dimension, and similarity metric.",
	}, s.handleListKnowledge)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_knowledge",
		Description: "Delete a single chunk from the knowledge base by its record ID.",
	}, s.handleDeleteKnowledge)
}

// AddKnowledgeParams defines parameters for the add_knowledge tool.
// Optional numeric fields are pointers so an explicit zero can be told
// apart from an omitted value.
type AddKnowledgeParams struct {
	Content      string         `json:"content" jsonschema:"The text content to add to the knowledge base"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Optional metadata attached to every chunk"`
	ChunkSize    *int           `json:"chunkSize,omitempty" jsonschema:"Maximum chunk size in characters (default 512)"`
	ChunkOverlap *int           `json:"chunkOverlap,omitempty" jsonschema:"Overlap between consecutive chunks in characters (default 50)"`
}

// QueryKnowledgeParams defines parameters for the query_knowledge tool.
type QueryKnowledgeParams struct {
	Query    string         `json:"query" jsonschema:"The search query"`
	TopK     *int           `json:"topK,omitempty" jsonschema:"Maximum number of results (default 5)"`
	Filter   map[string]any `json:"filter,omitempty" jsonschema:"Exact-match metadata filter; all keys must match"`
	MinScore *float64       `json:"minScore,omitempty" jsonschema:"Minimum similarity score in [0,1] (default 0)"`
}

// ListKnowledgeParams defines parameters for the list_knowledge tool.
type ListKnowledgeParams struct {
	Limit *int `json:"limit,omitempty" jsonschema:"Reserved for pagination (default 10)"`
}

// DeleteKnowledgeParams defines parameters for the delete_knowledge tool.
type DeleteKnowledgeParams struct {
	ID string `json:"id" jsonschema:"The record ID of the chunk to delete"`
}

type addKnowledgeResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	ChunksAdded int      `json:"chunksAdded"`
	IDs         []string `json:"ids"`
}

type queryKnowledgeResponse struct {
	Success bool                   `json:"success"`
	Query   string                 `json:"query"`
	Results []knowledge.QueryMatch `json:"results"`
	Count   int                    `json:"count"`
}

type listKnowledgeResponse struct {
	Success    bool   `json:"success"`
	IndexName  string `json:"indexName"`
	TotalItems int    `json:"totalItems"`
	Dimension  int    `json:"dimension"`
	Metric     string `json:"metric"`
}

type deleteKnowledgeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (s *Server) handleAddKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, params *AddKnowledgeParams) (*mcpsdk.CallToolResult, any, error) {
	chunkSize := defaultChunkSize
	if params.ChunkSize != nil {
		chunkSize = *params.ChunkSize
	}
	chunkOverlap := defaultChunkOverlap
	if params.ChunkOverlap != nil {
		chunkOverlap = *params.ChunkOverlap
	}

	result, err := s.kb.Ingest(ctx, knowledge.IngestRequest{
		Content:      params.Content,
		Metadata:     params.Metadata,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if err != nil {
		s.logger.Warn("add_knowledge failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	return jsonResult(addKnowledgeResponse{
		Success:     true,
		Message:     fmt.Sprintf("Added %d chunk(s) to the knowledge base", result.ChunksAdded),
		ChunksAdded: result.ChunksAdded,
		IDs:         result.IDs,
	}), nil, nil
}

func (s *Server) handleQueryKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, params *QueryKnowledgeParams) (*mcpsdk.CallToolResult, any, error) {
	topK := defaultTopK
	if params.TopK != nil {
		topK = *params.TopK
	}
	minScore := float64(defaultMinScore)
	if params.MinScore != nil {
		minScore = *params.MinScore
	}

	matches, err := s.kb.Query(ctx, knowledge.QueryRequest{
		Query:    params.Query,
		TopK:     topK,
		Filter:   params.Filter,
		MinScore: minScore,
	})
	if err != nil {
		s.logger.Warn("query_knowledge failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	return jsonResult(queryKnowledgeResponse{
		Success: true,
		Query:   params.Query,
		Results: matches,
		Count:   len(matches),
	}), nil, nil
}

func (s *Server) handleListKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, params *ListKnowledgeParams) (*mcpsdk.CallToolResult, any, error) {
	info, err := s.kb.Describe(ctx)
	if err != nil {
		s.logger.Warn("list_knowledge failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	return jsonResult(listKnowledgeResponse{
		Success:    true,
		IndexName:  info.Name,
		TotalItems: info.Count,
		Dimension:  info.Dimension,
		Metric:     string(info.Metric),
	}), nil, nil
}

func (s *Server) handleDeleteKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, params *DeleteKnowledgeParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.kb.Delete(ctx, params.ID); err != nil {
		s.logger.Warn("delete_knowledge failed", zap.Error(err), zap.String("id", params.ID))
		return errorResult(err), nil, nil
	}

	return jsonResult(deleteKnowledgeResponse{
		Success: true,
		Message: "Deleted chunk from the knowledge base",
		ID:      params.ID,
	}), nil, nil
}

// jsonResult renders a response as a single JSON text content block.
func jsonResult(v any) *mcpsdk.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encoding response: %w", err))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}
}

// errorResult renders an error as {"error": ...} with IsError set.
func errorResult(err error) *mcpsdk.CallToolResult {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		payload = []byte(`{"error":"internal error"}`)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(payload)},
		},
		IsError: true,
	}
}
