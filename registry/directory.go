// Package registry keeps the client's view of the documents ingested by the remote
// service and handles deleting them.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"go.uber.org/zap"
)

const (
	genericDeleteFailure = "Failed to delete document"

	EmptyNoDocuments = "No documents yet"
	EmptyNoMatches   = "No documents found"
)

// Source is the part of the remote service the directory reads and deletes through.
type Source interface {
	Documents(ctx context.Context) ([]remote.DocumentRecord, error)
	DeleteDocument(ctx context.Context, sessionID string) error
}

// DeleteOutcome tells the caller how the active session is affected by a delete.
type DeleteOutcome struct {
	SessionID string
	Filename  string
	WasActive bool
	// Fallback is the session to activate when WasActive; empty means no documents remain.
	Fallback string
}

// Empty reports whether the active session was deleted and nothing is left to fall back to.
func (o DeleteOutcome) Empty() bool {
	return o.WasActive && o.Fallback == ""
}

type Directory struct {
	source   Source
	notifier notify.Emitter
	logger   *zap.Logger

	mu      sync.Mutex
	records []remote.DocumentRecord
	loaded  bool
	seen    uint64
}

func NewDirectory(source Source, notifier notify.Emitter, logger *zap.Logger) *Directory {
	return &Directory{
		source:   source,
		notifier: notifier,
		logger:   logging.OrNop(logger).Named("registry"),
	}
}

// Refresh re-fetches the list. On failure the previous list is kept and the error is
// only logged and returned; list failures are not surfaced as notifications.
func (d *Directory) Refresh(ctx context.Context) ([]remote.DocumentRecord, error) {
	records, err := d.source.Documents(ctx)
	if err != nil {
		d.logger.Warn("failed to list documents", zap.Error(err))
		return d.Records(), fmt.Errorf("failed to list documents: %w", err)
	}

	d.mu.Lock()
	d.records = records
	d.loaded = true
	d.mu.Unlock()

	d.logger.Debug("documents refreshed", zap.Int("count", len(records)))
	return cloneRecords(records), nil
}

// RefreshIfStale refreshes when seq differs from the last refresh counter value seen.
func (d *Directory) RefreshIfStale(ctx context.Context, seq uint64) (bool, error) {
	d.mu.Lock()
	stale := !d.loaded || seq != d.seen
	d.seen = seq
	d.mu.Unlock()

	if !stale {
		return false, nil
	}
	_, err := d.Refresh(ctx)
	return true, err
}

// Loaded reports whether at least one refresh has succeeded.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *Directory) Records() []remote.DocumentRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneRecords(d.records)
}

// Search filters the last fetched list by case-insensitive filename substring.
// An empty query returns everything.
func (d *Directory) Search(query string) []remote.DocumentRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Filter(d.records, query)
}

func (d *Directory) Find(sessionID string) (remote.DocumentRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.records {
		if r.SessionID == sessionID {
			return r, true
		}
	}
	return remote.DocumentRecord{}, false
}

// Delete removes the document for sessionID. activeID is the session currently active in
// the caller; when they match the outcome names the session to fall back to.
func (d *Directory) Delete(ctx context.Context, sessionID, activeID string) (DeleteOutcome, error) {
	outcome := DeleteOutcome{SessionID: sessionID, WasActive: sessionID == activeID}
	if rec, ok := d.Find(sessionID); ok {
		outcome.Filename = rec.Filename
	}

	if err := d.source.DeleteDocument(ctx, sessionID); err != nil {
		d.logger.Warn("delete failed", zap.String("session_id", sessionID), zap.Error(err))
		d.emit(remote.ReasonOf(err, genericDeleteFailure), notify.SeverityError)
		return DeleteOutcome{}, fmt.Errorf("failed to delete document %s: %w", sessionID, err)
	}

	name := outcome.Filename
	if name == "" {
		name = sessionID
	}
	d.emit(fmt.Sprintf("Document \"%s\" deleted successfully", name), notify.SeveritySuccess)
	d.logger.Info("document deleted", zap.String("session_id", sessionID))

	remaining, err := d.Refresh(ctx)
	if err != nil {
		// The remote delete went through, so drop the record locally rather than
		// offering it as a fallback.
		d.mu.Lock()
		d.records = withoutSession(d.records, sessionID)
		remaining = cloneRecords(d.records)
		d.mu.Unlock()
	}
	remaining = withoutSession(remaining, sessionID)

	if outcome.WasActive && len(remaining) > 0 {
		outcome.Fallback = remaining[0].SessionID
	}
	return outcome, nil
}

func (d *Directory) emit(text string, severity notify.Severity) {
	if d.notifier != nil {
		d.notifier.Emit(text, severity)
	}
}

// Filter returns the records whose filename contains query, ignoring case.
func Filter(records []remote.DocumentRecord, query string) []remote.DocumentRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]remote.DocumentRecord, 0, len(records))
	for _, r := range records {
		if q == "" || strings.Contains(strings.ToLower(r.Filename), q) {
			out = append(out, r)
		}
	}
	return out
}

// EmptyMessage is the placeholder shown when a (possibly filtered) list has no rows.
func EmptyMessage(query string) string {
	if strings.TrimSpace(query) != "" {
		return EmptyNoMatches
	}
	return EmptyNoDocuments
}

func withoutSession(records []remote.DocumentRecord, sessionID string) []remote.DocumentRecord {
	out := make([]remote.DocumentRecord, 0, len(records))
	for _, r := range records {
		if r.SessionID != sessionID {
			out = append(out, r)
		}
	}
	return out
}

func cloneRecords(records []remote.DocumentRecord) []remote.DocumentRecord {
	out := make([]remote.DocumentRecord, len(records))
	copy(out, records)
	return out
}
