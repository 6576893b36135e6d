package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
)

// fakeBackend keeps a server-side history per session and answers with a fixed reply.
type fakeBackend struct {
	mu      sync.Mutex
	history map[string][]remote.HistoryMessage
	answer  remote.Answer
	askErr  error
	histErr error
	asks    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: map[string][]remote.HistoryMessage{}}
}

func (f *fakeBackend) Ask(ctx context.Context, sessionID, question string) (remote.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asks++
	if f.askErr != nil {
		return remote.Answer{}, f.askErr
	}
	n := len(f.history[sessionID])
	f.history[sessionID] = append(f.history[sessionID],
		remote.HistoryMessage{ID: string(rune('a' + n)), Role: remote.RoleUser, Content: question},
		remote.HistoryMessage{ID: string(rune('a' + n + 1)), Role: remote.RoleAssistant, Content: f.answer.Answer, Sources: f.answer.Sources},
	)
	return f.answer, nil
}

func (f *fakeBackend) History(ctx context.Context, sessionID string) ([]remote.HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.histErr != nil {
		return nil, f.histErr
	}
	out := make([]remote.HistoryMessage, len(f.history[sessionID]))
	copy(out, f.history[sessionID])
	return out, nil
}

func TestBeginGuards(t *testing.T) {
	m := NewMachine(newFakeBackend(), nil, nil)

	if _, err := m.Begin("hello"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Begin() before activation error = %v, want ErrNotReady", err)
	}

	m.Activate("s1", false)
	if _, err := m.Begin("hello"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Begin() on cold session error = %v, want ErrNotReady", err)
	}

	m.Activate("s1", true)
	if _, err := m.Begin("   \n"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Begin() blank error = %v, want ErrEmpty", err)
	}
	if len(m.Messages()) != 0 {
		t.Fatalf("rejected sends must not append, got %d messages", len(m.Messages()))
	}
}

func TestSecondSendWhileInFlightIsRejected(t *testing.T) {
	m := NewMachine(newFakeBackend(), nil, nil)
	m.Activate("s1", true)

	turn, err := m.Begin("first")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !m.InFlight() {
		t.Fatalf("expected a send in flight")
	}
	if _, err := m.Begin("second"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second Begin() error = %v, want ErrInFlight", err)
	}
	if got := len(m.Messages()); got != 1 {
		t.Fatalf("messages = %d, want only the first optimistic message", got)
	}

	m.Complete(turn, remote.Answer{Answer: "ok"}, nil)
	if m.InFlight() {
		t.Fatalf("in-flight flag should clear after completion")
	}
	if _, err := m.Begin("third"); err != nil {
		t.Fatalf("Begin() after completion error = %v", err)
	}
}

func TestSendReconcilesWithServerHistory(t *testing.T) {
	backend := newFakeBackend()
	backend.answer = remote.Answer{Answer: "A quarterly report.", Sources: []string{"Page 1"}}
	m := NewMachine(backend, nil, nil)
	m.Activate("s1", true)

	if err := m.Send(context.Background(), "What is this document about?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := m.Send(context.Background(), "Who wrote it?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	wantRoles := []remote.Role{remote.RoleUser, remote.RoleAssistant, remote.RoleUser, remote.RoleAssistant}
	for i, msg := range msgs {
		if msg.Role != wantRoles[i] {
			t.Fatalf("message %d role = %s, want %s", i, msg.Role, wantRoles[i])
		}
		if msg.Tentative {
			t.Fatalf("message %d should be authoritative after reload", i)
		}
	}
	if msgs[0].Content != "What is this document about?" || msgs[2].Content != "Who wrote it?" {
		t.Fatalf("server order not preserved: %+v", msgs)
	}
	if len(msgs[1].Sources) != 1 || msgs[1].Sources[0] != "Page 1" {
		t.Fatalf("sources = %v", msgs[1].Sources)
	}
}

func TestSendFailureKeepsQuestionAndAddsSyntheticReply(t *testing.T) {
	rec := &notify.Recorder{}
	backend := newFakeBackend()
	backend.askErr = &remote.APIError{Status: 500, Reason: "Error generating answer: rate limited"}
	m := NewMachine(backend, rec, nil)
	m.Activate("s1", true)

	if err := m.Send(context.Background(), "Summarize"); err == nil {
		t.Fatalf("Send() expected error")
	}

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != remote.RoleUser || msgs[0].Content != "Summarize" {
		t.Fatalf("optimistic question lost: %+v", msgs[0])
	}
	if !msgs[1].Synthetic || msgs[1].Content != "Error: Error generating answer: rate limited" {
		t.Fatalf("synthetic reply = %+v", msgs[1])
	}
	last, ok := rec.Last(notify.SeverityError)
	if !ok || last.Message != "Error generating answer: rate limited" {
		t.Fatalf("error notification = %+v", last)
	}
	if m.InFlight() {
		t.Fatalf("in-flight flag should clear after failure")
	}
}

func TestSendFailureWithoutReason(t *testing.T) {
	backend := newFakeBackend()
	backend.askErr = errors.New("dial tcp: connection refused")
	m := NewMachine(backend, nil, nil)
	m.Activate("s1", true)

	_ = m.Send(context.Background(), "hi")
	msgs := m.Messages()
	if msgs[len(msgs)-1].Content != "Error: Something went wrong" {
		t.Fatalf("synthetic reply = %q", msgs[len(msgs)-1].Content)
	}
}

func TestHistoryLoadFailureKeepsLocalMessages(t *testing.T) {
	backend := newFakeBackend()
	backend.answer = remote.Answer{Answer: "yes"}
	m := NewMachine(backend, nil, nil)
	m.Activate("s1", true)

	backend.histErr = errors.New("history down")
	if err := m.Send(context.Background(), "still there?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	msgs := m.Messages()
	if len(msgs) != 2 || !msgs[0].Tentative || !msgs[1].Tentative {
		t.Fatalf("local messages should survive a failed reload: %+v", msgs)
	}
}

func TestSwitchingSessionDiscardsThreadAndLateAnswer(t *testing.T) {
	rec := &notify.Recorder{}
	m := NewMachine(newFakeBackend(), rec, nil)
	m.Activate("s1", true)

	turn, err := m.Begin("question for s1")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	m.Activate("s2", true)
	if len(m.Messages()) != 0 {
		t.Fatalf("new session should start empty")
	}
	if m.Complete(turn, remote.Answer{}, errors.New("late failure")) {
		t.Fatalf("late completion should not ask for reload")
	}
	if len(m.Messages()) != 0 {
		t.Fatalf("late answer leaked into the new session")
	}
	if len(rec.All()) != 0 {
		t.Fatalf("late failure for a gone session should not notify")
	}
	if m.store.Len() != 1 {
		t.Fatalf("store holds %d threads, want 1", m.store.Len())
	}
	if _, err := m.Begin("question for s2"); err != nil {
		t.Fatalf("Begin() on new session error = %v", err)
	}
}

func TestLoadReplacesRatherThanMerges(t *testing.T) {
	backend := newFakeBackend()
	backend.history["s1"] = []remote.HistoryMessage{
		{ID: "1", Role: remote.RoleUser, Content: "old question"},
		{ID: "2", Role: remote.RoleAssistant, Content: "old answer"},
	}
	m := NewMachine(backend, nil, nil)
	m.Activate("s1", true)

	turn, _ := m.Begin("pending")
	if err := m.Load(context.Background(), "s1"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	msgs := m.Messages()
	if len(msgs) != 2 || msgs[0].Content != "old question" {
		t.Fatalf("Load() should replace local messages: %+v", msgs)
	}
	m.Complete(turn, remote.Answer{Answer: "late"}, nil)
	if got := len(m.Messages()); got != 3 {
		t.Fatalf("messages after completion = %d, want 3", got)
	}
}

func TestApplyIgnoresInactiveSession(t *testing.T) {
	m := NewMachine(newFakeBackend(), nil, nil)
	m.Activate("s1", true)
	if m.Apply("s0", []remote.HistoryMessage{{ID: "x", Role: remote.RoleUser, Content: "stale"}}) {
		t.Fatalf("Apply() for another session should be ignored")
	}
	if len(m.Messages()) != 0 {
		t.Fatalf("stale history applied")
	}
}

func TestBeginShowsTheQuestionThatIsSent(t *testing.T) {
	backend := newFakeBackend()
	m := NewMachine(backend, nil, nil)
	m.Activate("s1", true)

	turn, err := m.Begin("  What is the summary?\n")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	msgs := m.Messages()
	if len(msgs) != 1 || msgs[0].Content != turn.Question {
		t.Fatalf("optimistic message = %+v, question = %q", msgs, turn.Question)
	}
	if turn.Question != "What is the summary?" {
		t.Fatalf("question = %q", turn.Question)
	}

	answer, err := m.Ask(context.Background(), turn)
	if !m.Complete(turn, answer, err) {
		t.Fatalf("Complete() should request a reload")
	}
	history, _ := backend.History(context.Background(), "s1")
	if history[0].Content != msgs[0].Content {
		t.Fatalf("sent %q, displayed %q", history[0].Content, msgs[0].Content)
	}
}
