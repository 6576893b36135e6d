// Package mcp exposes the document service to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/registry"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/alpkeskin/gotoon"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName    = "pdfqa"
	serverVersion = "1.0.0"
)

// Backend is the slice of the remote service the tools call.
type Backend interface {
	Health(ctx context.Context) error
	Documents(ctx context.Context) ([]remote.DocumentRecord, error)
	Ask(ctx context.Context, sessionID, question string) (remote.Answer, error)
	History(ctx context.Context, sessionID string) ([]remote.HistoryMessage, error)
}

type Server struct {
	mcpServer *server.MCPServer
	backend   Backend
	state     *session.StateStore
	logger    *zap.Logger
}

// DocumentResult is one row of pdfqa_list_documents.
type DocumentResult struct {
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

type AnswerResult struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
}

type HistoryResult struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// NewServer builds a server whose tools default to the session remembered in state.
// state may be nil, in which case every tool needs an explicit session_id.
func NewServer(backend Backend, state *session.StateStore, logger *zap.Logger) *Server {
	s := &Server{
		backend: backend,
		state:   state,
		logger:  logging.OrNop(logger).Named("mcp"),
	}
	s.mcpServer = server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("pdfqa_list_documents",
		mcp.WithDescription("List the PDF documents ingested by the service, newest first as the service orders them."),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive filename filter"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default) or toon"),
			mcp.Enum("json", "toon"),
		),
	), s.handleListDocuments)

	s.mcpServer.AddTool(mcp.NewTool("pdfqa_ask",
		mcp.WithDescription("Ask a question about an ingested PDF. Answers cite the pages they come from."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to ask"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session of the document to ask about (default: last active session)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default) or toon"),
			mcp.Enum("json", "toon"),
		),
	), s.handleAsk)

	s.mcpServer.AddTool(mcp.NewTool("pdfqa_history",
		mcp.WithDescription("Return the conversation history the service keeps for a session."),
		mcp.WithString("session_id",
			mcp.Description("Session to read (default: last active session)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default) or toon"),
			mcp.Enum("json", "toon"),
		),
	), s.handleHistory)

	s.mcpServer.AddTool(mcp.NewTool("pdfqa_health",
		mcp.WithDescription("Check that the document service is reachable."),
	), s.handleHealth)
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.backend.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}
	records = registry.Filter(records, req.GetString("query", ""))

	out := make([]DocumentResult, 0, len(records))
	for _, r := range records {
		row := DocumentResult{
			SessionID:  r.SessionID,
			Filename:   r.Filename,
			ChunkCount: r.ChunkCount,
		}
		if !r.UploadedAt.IsZero() {
			row.UploadedAt = r.UploadedAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	return s.result(out, req.GetString("format", "json"))
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}
	sessionID, err := s.resolveSession(req.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.backend.Ask(ctx, sessionID, question)
	if err != nil {
		s.logger.Warn("ask failed", zap.String("session_id", sessionID), zap.Error(err))
		return mcp.NewToolResultError(remote.ReasonOf(err, "Something went wrong")), nil
	}
	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return s.result(AnswerResult{SessionID: sessionID, Answer: answer.Answer, Sources: sources}, req.GetString("format", "json"))
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := s.resolveSession(req.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	history, err := s.backend.History(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}
	out := make([]HistoryResult, 0, len(history))
	for _, h := range history {
		row := HistoryResult{Role: string(h.Role), Content: h.Content, Sources: h.Sources}
		if !h.CreatedAt.IsZero() {
			row.CreatedAt = h.CreatedAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	return s.result(out, req.GetString("format", "json"))
}

func (s *Server) handleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.backend.Health(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("service unavailable: %v", err)), nil
	}
	return mcp.NewToolResultText("healthy"), nil
}

// resolveSession falls back to the last active session remembered by the CLI.
func (s *Server) resolveSession(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.state == nil {
		return "", fmt.Errorf("session_id is required")
	}
	st, err := s.state.Load()
	if err != nil {
		return "", err
	}
	if st.SessionID == "" {
		return "", fmt.Errorf("no active session; pass session_id or upload a document first")
	}
	return st.SessionID, nil
}

func (s *Server) result(v any, format string) (*mcp.CallToolResult, error) {
	text, err := encodeOutput(v, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func encodeOutput(v any, format string) (string, error) {
	if format == "toon" {
		return gotoon.Encode(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Serve blocks serving MCP over stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}
