package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeBackend struct {
	docs      []remote.DocumentRecord
	history   []remote.HistoryMessage
	answer    remote.Answer
	askErr    error
	healthErr error
	askedFor  string
}

func (f *fakeBackend) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeBackend) Documents(ctx context.Context) ([]remote.DocumentRecord, error) {
	return f.docs, nil
}

func (f *fakeBackend) Ask(ctx context.Context, sessionID, question string) (remote.Answer, error) {
	f.askedFor = sessionID
	return f.answer, f.askErr
}

func (f *fakeBackend) History(ctx context.Context, sessionID string) ([]remote.HistoryMessage, error) {
	return f.history, nil
}

func callTool(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

// TestRegisterTools verifies every tool is registered with an object schema.
func TestRegisterTools(t *testing.T) {
	s := NewServer(&fakeBackend{}, nil, nil)
	tools := s.mcpServer.ListTools()

	for _, name := range []string{"pdfqa_list_documents", "pdfqa_ask", "pdfqa_history", "pdfqa_health"} {
		tool, ok := tools[name]
		if !ok {
			t.Fatalf("%s tool not registered", name)
		}
		if tool.Tool.InputSchema.Type != "object" {
			t.Fatalf("%s schema type = %q, want object", name, tool.Tool.InputSchema.Type)
		}
	}

	ask := tools["pdfqa_ask"].Tool.InputSchema
	if len(ask.Required) != 1 || ask.Required[0] != "question" {
		t.Fatalf("pdfqa_ask required = %v", ask.Required)
	}
}

func TestEncodeOutput(t *testing.T) {
	data := map[string]interface{}{
		"filename": "report.pdf",
		"chunks":   12,
	}

	for _, format := range []string{"json", "toon", ""} {
		t.Run("format="+format, func(t *testing.T) {
			output, err := encodeOutput(data, format)
			if err != nil {
				t.Fatalf("encodeOutput() error = %v", err)
			}
			if !strings.Contains(output, "report.pdf") {
				t.Fatalf("encodeOutput() = %q", output)
			}
		})
	}
}

func TestHandleListDocumentsFilters(t *testing.T) {
	backend := &fakeBackend{docs: []remote.DocumentRecord{
		{SessionID: "s1", Filename: "Report.pdf", ChunkCount: 12},
		{SessionID: "s2", Filename: "notes.pdf", ChunkCount: 3},
	}}
	s := NewServer(backend, nil, nil)

	result, err := s.handleListDocuments(context.Background(), callTool(map[string]any{"query": "report"}))
	if err != nil {
		t.Fatalf("handleListDocuments error: %v", err)
	}

	var docs []DocumentResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &docs); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if len(docs) != 1 || docs[0].SessionID != "s1" || docs[0].ChunkCount != 12 {
		t.Fatalf("documents = %+v", docs)
	}
}

func TestHandleAskUsesRememberedSession(t *testing.T) {
	store := session.NewStateStore(filepath.Join(t.TempDir(), "state.gob"))
	if err := store.Save(session.State{SessionID: "session-42"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	backend := &fakeBackend{answer: remote.Answer{Answer: "It is a report.", Sources: []string{"Page 2"}}}
	s := NewServer(backend, store, nil)

	result, err := s.handleAsk(context.Background(), callTool(map[string]any{"question": "What is it?"}))
	if err != nil {
		t.Fatalf("handleAsk error: %v", err)
	}
	if result.IsError {
		t.Fatalf("handleAsk returned tool error: %s", resultText(t, result))
	}
	if backend.askedFor != "session-42" {
		t.Fatalf("asked session = %q, want session-42", backend.askedFor)
	}

	var ans AnswerResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &ans); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if ans.Answer != "It is a report." || len(ans.Sources) != 1 {
		t.Fatalf("answer = %+v", ans)
	}
}

func TestHandleAskErrors(t *testing.T) {
	t.Run("missing question", func(t *testing.T) {
		s := NewServer(&fakeBackend{}, nil, nil)
		result, _ := s.handleAsk(context.Background(), callTool(map[string]any{"session_id": "s"}))
		if !result.IsError {
			t.Fatalf("expected tool error")
		}
	})

	t.Run("no session", func(t *testing.T) {
		s := NewServer(&fakeBackend{}, nil, nil)
		result, _ := s.handleAsk(context.Background(), callTool(map[string]any{"question": "q"}))
		if !result.IsError || !strings.Contains(resultText(t, result), "session_id") {
			t.Fatalf("expected session error, got %+v", result)
		}
	})

	t.Run("remote reason", func(t *testing.T) {
		backend := &fakeBackend{askErr: &remote.APIError{Status: 404, Reason: "Session not found"}}
		s := NewServer(backend, nil, nil)
		result, _ := s.handleAsk(context.Background(), callTool(map[string]any{"question": "q", "session_id": "gone"}))
		if !result.IsError || resultText(t, result) != "Session not found" {
			t.Fatalf("expected remote reason, got %q", resultText(t, result))
		}
	})
}

func TestHandleHistory(t *testing.T) {
	backend := &fakeBackend{history: []remote.HistoryMessage{
		{ID: "1", Role: remote.RoleUser, Content: "hi"},
		{ID: "2", Role: remote.RoleAssistant, Content: "hello", Sources: []string{"Page 1"}},
	}}
	s := NewServer(backend, nil, nil)

	result, err := s.handleHistory(context.Background(), callTool(map[string]any{"session_id": "s1"}))
	if err != nil {
		t.Fatalf("handleHistory error: %v", err)
	}
	var rows []HistoryResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if len(rows) != 2 || rows[0].Role != "user" || rows[1].Sources[0] != "Page 1" {
		t.Fatalf("history = %+v", rows)
	}
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(&fakeBackend{}, nil, nil)
	result, _ := s.handleHealth(context.Background(), callTool(nil))
	if result.IsError || resultText(t, result) != "healthy" {
		t.Fatalf("health = %+v", result)
	}

	s = NewServer(&fakeBackend{healthErr: errors.New("down")}, nil, nil)
	result, _ = s.handleHealth(context.Background(), callTool(nil))
	if !result.IsError {
		t.Fatalf("expected tool error when service is down")
	}
}
