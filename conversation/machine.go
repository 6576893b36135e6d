// Package conversation runs the question and answer exchange for the active session and
// reconciles it with the history the service keeps.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"go.uber.org/zap"
)

const genericChatFailure = "Something went wrong"

var (
	ErrEmpty    = errors.New("question is empty")
	ErrNotReady = errors.New("no document is ready for questions")
	ErrInFlight = errors.New("a question is already being answered")
)

// Backend is the part of the remote service a conversation needs.
type Backend interface {
	Ask(ctx context.Context, sessionID, question string) (remote.Answer, error)
	History(ctx context.Context, sessionID string) ([]remote.HistoryMessage, error)
}

// Turn is one accepted question waiting for its answer.
type Turn struct {
	SessionID string
	Question  string
	thread    *Thread
}

type Machine struct {
	backend  Backend
	notifier notify.Emitter
	logger   *zap.Logger
	store    *Store

	mu     sync.Mutex
	active string
	ready  bool
}

func NewMachine(backend Backend, notifier notify.Emitter, logger *zap.Logger) *Machine {
	return &Machine{
		backend:  backend,
		notifier: notifier,
		logger:   logging.OrNop(logger).Named("conversation"),
		store:    NewStore(),
	}
}

// Activate points the machine at sessionID. Switching to a different session discards
// the previous thread; late results for it are dropped.
func (m *Machine) Activate(sessionID string, ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" && m.active != sessionID {
		m.store.Evict(m.active)
		m.logger.Debug("thread evicted", zap.String("session_id", m.active))
	}
	m.active = sessionID
	m.ready = ready
	if sessionID != "" {
		m.store.Open(sessionID)
	}
}

func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// InFlight reports whether the active session is waiting on an answer.
func (m *Machine) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store.Get(m.active)
	return ok && t.inFlight
}

// Messages returns a copy of the active session's messages in display order.
func (m *Machine) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store.Get(m.active)
	if !ok {
		return nil
	}
	return t.snapshot()
}

// Begin accepts a question for the active session and appends it optimistically.
// Blank text, a session that is not ready and a question already in flight are rejected
// without side effects.
func (m *Machine) Begin(text string) (Turn, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return Turn{}, ErrEmpty
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready || m.active == "" {
		return Turn{}, ErrNotReady
	}
	t := m.store.Open(m.active)
	if t.inFlight {
		return Turn{}, ErrInFlight
	}

	t.inFlight = true
	t.append(Message{Role: remote.RoleUser, Content: question, Tentative: true})
	return Turn{SessionID: m.active, Question: question, thread: t}, nil
}

// Ask performs the remote call for turn. It touches no local state, so the caller may
// run it off the event loop.
func (m *Machine) Ask(ctx context.Context, turn Turn) (remote.Answer, error) {
	return m.backend.Ask(ctx, turn.SessionID, turn.Question)
}

// Complete records the outcome of turn. It reports whether the caller should reload
// history; results for a session that is no longer active are dropped.
func (m *Machine) Complete(turn Turn, answer remote.Answer, err error) bool {
	m.mu.Lock()

	turn.thread.inFlight = false
	current, ok := m.store.Get(turn.SessionID)
	if !ok || current != turn.thread || m.active != turn.SessionID {
		m.mu.Unlock()
		m.logger.Debug("dropping answer for inactive session", zap.String("session_id", turn.SessionID))
		return false
	}

	if err != nil {
		reason := remote.ReasonOf(err, genericChatFailure)
		turn.thread.append(Message{
			Role:      remote.RoleAssistant,
			Content:   "Error: " + reason,
			Tentative: true,
			Synthetic: true,
		})
		m.mu.Unlock()

		m.logger.Warn("question failed", zap.String("session_id", turn.SessionID), zap.Error(err))
		m.emit(reason, notify.SeverityError)
		return false
	}

	turn.thread.append(Message{
		Role:      remote.RoleAssistant,
		Content:   answer.Answer,
		Sources:   answer.Sources,
		Tentative: true,
	})
	m.mu.Unlock()

	m.logger.Info("question answered",
		zap.String("session_id", turn.SessionID),
		zap.Int("sources", len(answer.Sources)))
	return true
}

// Fetch loads server history for sessionID without touching local state.
func (m *Machine) Fetch(ctx context.Context, sessionID string) ([]remote.HistoryMessage, error) {
	history, err := m.backend.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", sessionID, err)
	}
	return history, nil
}

// Apply replaces the thread of sessionID with history if that session is still active.
func (m *Machine) Apply(sessionID string, history []remote.HistoryMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != sessionID {
		return false
	}
	t := m.store.Open(sessionID)
	t.replace(history)
	return true
}

// Load replaces the active thread with server history. Failures keep the local
// messages and are only logged.
func (m *Machine) Load(ctx context.Context, sessionID string) error {
	history, err := m.Fetch(ctx, sessionID)
	if err != nil {
		m.logger.Warn("history load failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	m.Apply(sessionID, history)
	return nil
}

// Send runs a full turn on the calling goroutine: optimistic append, remote question,
// answer or synthetic error, then history reconciliation.
func (m *Machine) Send(ctx context.Context, text string) error {
	turn, err := m.Begin(text)
	if err != nil {
		return err
	}
	answer, askErr := m.Ask(ctx, turn)
	if m.Complete(turn, answer, askErr) {
		_ = m.Load(ctx, turn.SessionID)
	}
	return askErr
}

func (m *Machine) emit(text string, severity notify.Severity) {
	if m.notifier != nil {
		m.notifier.Emit(text, severity)
	}
}
