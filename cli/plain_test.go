package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
	"github.com/GathsaraH/PDF-QA-Assistant/notify"
	"github.com/GathsaraH/PDF-QA-Assistant/registry"
	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/GathsaraH/PDF-QA-Assistant/session"
)

func TestPrinterNotificationLabels(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	p.Notifications([]notify.Notification{
		{Message: "PDF processed successfully! (12 chunks ready)", Severity: notify.SeveritySuccess},
		{Message: "Please upload a PDF file", Severity: notify.SeverityError},
		{Message: "heads up", Severity: notify.SeverityWarning},
	})

	want := "[ok] PDF processed successfully! (12 chunks ready)\n" +
		"[error] Please upload a PDF file\n" +
		"[warn] heads up\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinterBusHandler(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	bus := notify.NewBus(nil)
	defer bus.Close()
	unsubscribe := bus.Subscribe(p.Notification)
	bus.Emit("Document \"a.pdf\" deleted successfully", notify.SeveritySuccess)
	unsubscribe()

	if !strings.Contains(buf.String(), `[ok] Document "a.pdf" deleted successfully`) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	printHistory(p, nil)
	if !strings.Contains(buf.String(), "No messages yet") {
		t.Fatalf("empty history output = %q", buf.String())
	}

	buf.Reset()
	at := remote.Timestamp{Time: time.Date(2026, 3, 4, 9, 30, 0, 0, time.Local)}
	printHistory(p, []remote.HistoryMessage{
		{Role: remote.RoleUser, Content: "Summarise it", CreatedAt: at},
		{Role: remote.RoleAssistant, Content: "It is short.", Sources: []string{"Page 1", "Page 2"}, CreatedAt: at},
	})
	out := buf.String()
	for _, want := range []string{"09:30 user", "Summarise it", "09:30 assistant", "2 sources"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDocuments(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	printDocuments(p, nil, "", "")
	printDocuments(p, nil, "zzz", "")
	if !strings.Contains(buf.String(), "No documents yet") || !strings.Contains(buf.String(), "No documents found") {
		t.Fatalf("empty states = %q", buf.String())
	}

	buf.Reset()
	printDocuments(p, []remote.DocumentRecord{
		{SessionID: "s1", Filename: "a.pdf", ChunkCount: 4},
		{SessionID: "s2", Filename: "b.pdf", ChunkCount: 9},
	}, "", "s2")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[2], "* b.pdf  9 chunks") {
		t.Fatalf("active marker missing: %q", lines)
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tc.input), &out, "Delete? ")
		if err != nil {
			t.Fatalf("confirm(%q) error = %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if out.String() != "Delete? " {
			t.Fatalf("prompt = %q", out.String())
		}
	}
}

func TestApplyDeleteToState(t *testing.T) {
	dir := t.TempDir()
	svc := newFakeService(remote.DocumentRecord{SessionID: "s2", Filename: "b.pdf"})
	directory := registry.NewDirectory(svc, nil, nil)
	if _, err := directory.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	store := session.NewStateStore(filepath.Join(dir, "state.gob"))
	if err := store.Save(session.State{SessionID: "s1", Filename: "a.pdf"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := applyDeleteToState(store, directory, registry.DeleteOutcome{SessionID: "s1", WasActive: true, Fallback: "s2"}, p); err != nil {
		t.Fatalf("applyDeleteToState() error = %v", err)
	}
	st, _ := store.Load()
	if st.SessionID != "s2" || st.Filename != "b.pdf" {
		t.Fatalf("state after fallback = %+v", st)
	}

	if err := applyDeleteToState(store, directory, registry.DeleteOutcome{SessionID: "s2", WasActive: true}, p); err != nil {
		t.Fatalf("applyDeleteToState() error = %v", err)
	}
	st, _ = store.Load()
	if st.SessionID != "" {
		t.Fatalf("state should be cleared, got %+v", st)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfqa", "config.yaml")

	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig() error = %v", err)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Fatalf("writeDefaultConfig(force) error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Upload.MaxBytes != config.DefaultMaxBytes {
		t.Fatalf("max bytes = %d", cfg.Upload.MaxBytes)
	}
}
