// Package session owns the identity of the active session and which surface is shown.
package session

import (
	"sync"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/registry"
	"github.com/GathsaraH/PDF-QA-Assistant/upload"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Surface int

const (
	SurfaceUpload Surface = iota
	SurfaceConversation
)

func (s Surface) String() string {
	if s == SurfaceConversation {
		return "conversation"
	}
	return "upload"
}

// Snapshot is the controller state handed to surfaces by value.
type Snapshot struct {
	SessionID  string
	Filename   string
	Ready      bool
	Surface    Surface
	RefreshSeq uint64
}

// Activator is told whenever the active session or its readiness changes.
type Activator interface {
	Activate(sessionID string, ready bool)
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = logging.OrNop(l).Named("session") }
}

func WithActivator(a Activator) Option {
	return func(c *Controller) { c.activator = a }
}

// WithIDSource replaces the session id generator.
func WithIDSource(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// Controller is the only writer of the active session id. It performs no I/O.
type Controller struct {
	logger    *zap.Logger
	activator Activator
	newID     func() string

	mu    sync.Mutex
	state Snapshot
}

func NewID() string {
	return "session-" + uuid.NewString()
}

// NewController mints the cold-start session id and shows the upload surface.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		logger: zap.NewNop(),
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = Snapshot{SessionID: c.newID(), Surface: SurfaceUpload}
	c.notify()
	return c
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UploadTarget returns the session id a new upload should ingest into. A session that
// is not yet ready is reused; a ready one is never overwritten.
func (c *Controller) UploadTarget() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Ready {
		return c.state.SessionID
	}
	return c.newID()
}

// AdoptUpload activates the session produced by a finished upload.
func (c *Controller) AdoptUpload(done upload.Completion) Snapshot {
	c.mu.Lock()
	c.state.SessionID = done.SessionID
	c.state.Filename = done.Filename
	c.state.Ready = true
	c.state.Surface = SurfaceConversation
	c.state.RefreshSeq++
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("session adopted from upload",
		zap.String("session_id", done.SessionID),
		zap.Int("chunks", done.Chunks))
	c.notify()
	return snap
}

// Select activates an existing document's session.
func (c *Controller) Select(sessionID, filename string) Snapshot {
	c.mu.Lock()
	c.state.SessionID = sessionID
	c.state.Filename = filename
	c.state.Ready = true
	c.state.Surface = SurfaceConversation
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("session selected", zap.String("session_id", sessionID))
	c.notify()
	return snap
}

// ApplyDelete reacts to a finished delete. Deleting the active session falls back to
// the given session or, with none left, to a fresh cold session on the upload surface.
func (c *Controller) ApplyDelete(out registry.DeleteOutcome, fallbackName string) Snapshot {
	if !out.WasActive {
		c.mu.Lock()
		c.state.RefreshSeq++
		snap := c.state
		c.mu.Unlock()
		return snap
	}
	if out.Fallback != "" {
		c.mu.Lock()
		c.state.RefreshSeq++
		c.mu.Unlock()
		return c.Select(out.Fallback, fallbackName)
	}

	c.mu.Lock()
	c.state = Snapshot{
		SessionID:  c.newID(),
		Surface:    SurfaceUpload,
		RefreshSeq: c.state.RefreshSeq + 1,
	}
	snap := c.state
	c.mu.Unlock()

	c.logger.Info("no documents left, back to upload", zap.String("session_id", snap.SessionID))
	c.notify()
	return snap
}

// ShowUpload switches to the upload surface without touching the active session.
func (c *Controller) ShowUpload() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Surface = SurfaceUpload
	return c.state
}

// ShowConversation switches back to the conversation surface when a session is ready.
func (c *Controller) ShowConversation() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Ready {
		c.state.Surface = SurfaceConversation
	}
	return c.state
}

// RequestRefresh bumps the refresh counter the directory follows.
func (c *Controller) RequestRefresh() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.RefreshSeq++
	return c.state.RefreshSeq
}

func (c *Controller) notify() {
	if c.activator == nil {
		return
	}
	snap := c.Snapshot()
	c.activator.Activate(snap.SessionID, snap.Ready)
}
