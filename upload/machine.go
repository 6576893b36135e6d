// Package upload drives one document from file selection through transfer and
// remote ingestion to a ready session.
package upload

import (
	"errors"
	"fmt"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Validating
	Transferring
	Processing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Transferring:
		return "transferring"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const genericFailure = "Failed to upload file"

var (
	ErrBusy            = errors.New("an upload is already in progress")
	ErrUnsupportedType = errors.New("Please upload a PDF file")
	ErrTooLarge        = errors.New("file exceeds the maximum upload size")
)

// Policy holds the validation limits and the cosmetic timing of a job.
type Policy struct {
	AcceptedType  string
	MaxBytes      int64
	RampStep      int
	RampInterval  time.Duration
	RampCap       int
	StageInterval time.Duration
	Stages        []string
}

func PolicyFromConfig(cfg config.UploadConfig) Policy {
	stages := make([]string, len(cfg.Stages))
	copy(stages, cfg.Stages)
	return Policy{
		AcceptedType:  cfg.AcceptedType,
		MaxBytes:      cfg.MaxBytes,
		RampStep:      cfg.RampStep,
		RampInterval:  cfg.RampInterval,
		RampCap:       cfg.RampCap,
		StageInterval: cfg.StageInterval,
		Stages:        stages,
	}
}

func DefaultPolicy() Policy {
	return PolicyFromConfig(config.DefaultConfig().Upload)
}

// Completion is reported once per job when it reaches Ready.
type Completion struct {
	SessionID string
	Filename  string
	Chunks    int
}

// JobID identifies one selection-to-completion cycle. Events carrying an older id
// are stale and ignored.
type JobID uint64

type Option func(*Machine)

func WithNotifier(n notify.Emitter) Option {
	return func(m *Machine) { m.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = logging.OrNop(l).Named("upload") }
}

// WithOnReady registers the callback run on entry to Ready.
func WithOnReady(fn func(Completion)) Option {
	return func(m *Machine) { m.onReady = fn }
}

// WithObserver registers a callback run on every state change.
func WithObserver(fn func(from, to State)) Option {
	return func(m *Machine) { m.observer = fn }
}

// Machine is not safe for concurrent use; a single event loop owns it.
type Machine struct {
	policy   Policy
	notifier notify.Emitter
	logger   *zap.Logger
	onReady  func(Completion)
	observer func(from, to State)

	state     State
	job       JobID
	file      *File
	sessionID string
	progress  int
	step      int
	chunks    int
}

func NewMachine(policy Policy, opts ...Option) *Machine {
	m := &Machine{
		policy: policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State       { return m.state }
func (m *Machine) Job() JobID         { return m.job }
func (m *Machine) Progress() int      { return m.progress }
func (m *Machine) Step() int          { return m.step }
func (m *Machine) Chunks() int        { return m.chunks }
func (m *Machine) SessionID() string  { return m.sessionID }
func (m *Machine) Policy() Policy     { return m.policy }
func (m *Machine) Stages() []string   { return m.policy.Stages }
func (m *Machine) File() (File, bool) {
	if m.file == nil {
		return File{}, false
	}
	return *m.file, true
}

// Busy reports whether selection is currently disabled.
func (m *Machine) Busy() bool {
	return m.state == Validating || m.state == Transferring || m.state == Processing
}

// StageLabel returns the label of the current processing stage.
func (m *Machine) StageLabel() string {
	if len(m.policy.Stages) == 0 {
		return ""
	}
	i := m.step
	if i >= len(m.policy.Stages) {
		i = len(m.policy.Stages) - 1
	}
	return m.policy.Stages[i]
}

// Select starts a job for file targeting sessionID. Validation failures return to
// Idle, emit an error notification and return the validation error. On success the
// machine is Transferring and the caller must start the transfer for the returned job.
func (m *Machine) Select(file File, sessionID string) (JobID, error) {
	if m.Busy() {
		return 0, ErrBusy
	}

	m.reset()
	m.transition(Validating)
	m.file = &file

	if err := m.validate(file); err != nil {
		m.logger.Info("selection rejected",
			zap.String("file", file.Name),
			zap.Int64("size", file.Size),
			zap.String("content_type", file.ContentType),
			zap.Error(err))
		m.emit(err.Error(), notify.SeverityError)
		m.file = nil
		m.transition(Idle)
		return 0, err
	}

	m.job++
	m.sessionID = sessionID
	m.progress = 0
	m.transition(Transferring)
	m.logger.Info("transfer started",
		zap.Uint64("job", uint64(m.job)),
		zap.String("file", file.Name),
		zap.String("session_id", sessionID))
	return m.job, nil
}

func (m *Machine) validate(file File) error {
	if file.ContentType != m.policy.AcceptedType {
		return ErrUnsupportedType
	}
	if file.Size > m.policy.MaxBytes {
		return fmt.Errorf("%w: %s is %s, limit is %s",
			ErrTooLarge, file.Name, FormatSize(file.Size), FormatSize(m.policy.MaxBytes))
	}
	return nil
}

// Tick advances the synthetic transfer ramp. It reports whether the ramp should keep
// ticking for job.
func (m *Machine) Tick(job JobID) bool {
	if job != m.job || m.state != Transferring {
		return false
	}
	next := m.progress + m.policy.RampStep
	if next > m.policy.RampCap {
		next = m.policy.RampCap
	}
	if next > m.progress {
		m.progress = next
	}
	return true
}

// Acknowledge records the service's receipt of the file. Progress reaches 100 only here.
func (m *Machine) Acknowledge(job JobID, res remote.UploadResult) bool {
	if job != m.job || m.state != Transferring {
		return false
	}
	m.progress = 100
	m.chunks = res.Chunks
	if m.chunks < 0 {
		m.chunks = 0
	}
	m.step = 0
	m.transition(Processing)
	m.logger.Info("transfer acknowledged",
		zap.Uint64("job", uint64(job)),
		zap.Int("chunks", m.chunks))
	return true
}

// Reject fails the transfer for job: the ramp is discarded, the selection cleared and
// the machine returns to Idle.
func (m *Machine) Reject(job JobID, err error) bool {
	if job != m.job || m.state != Transferring {
		return false
	}
	reason := remote.ReasonOf(err, genericFailure)
	m.logger.Warn("transfer failed", zap.Uint64("job", uint64(job)), zap.Error(err))

	m.transition(Failed)
	m.emit(reason, notify.SeverityError)
	m.reset()
	m.transition(Idle)
	return true
}

// Advance moves to the next cosmetic processing stage. It reports whether more
// stages remain; after the last one the machine is Ready.
func (m *Machine) Advance(job JobID) bool {
	if job != m.job || m.state != Processing {
		return false
	}
	m.step++
	if m.step < len(m.policy.Stages) {
		return true
	}

	m.step = max(len(m.policy.Stages)-1, 0)
	m.transition(Ready)
	done := Completion{SessionID: m.sessionID, Chunks: m.chunks}
	if m.file != nil {
		done.Filename = m.file.Name
	}
	m.emit(fmt.Sprintf("PDF processed successfully! (%d chunks ready)", m.chunks), notify.SeveritySuccess)
	m.logger.Info("document ready",
		zap.Uint64("job", uint64(job)),
		zap.String("session_id", done.SessionID),
		zap.Int("chunks", done.Chunks))
	if m.onReady != nil {
		m.onReady(done)
	}
	return false
}

// Clear drops the current selection when nothing is in flight.
func (m *Machine) Clear() bool {
	if m.Busy() {
		return false
	}
	m.reset()
	m.transition(Idle)
	return true
}

// discard drops job without notifying. Only the runner uses it, when its caller
// goes away mid-job.
func (m *Machine) discard(job JobID) {
	if job != m.job || !m.Busy() {
		return
	}
	m.reset()
	m.transition(Idle)
}

func (m *Machine) reset() {
	m.file = nil
	m.sessionID = ""
	m.progress = 0
	m.step = 0
	m.chunks = 0
}

func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	if m.observer != nil && from != to {
		m.observer(from, to)
	}
}

func (m *Machine) emit(text string, severity notify.Severity) {
	if m.notifier != nil {
		m.notifier.Emit(text, severity)
	}
}
