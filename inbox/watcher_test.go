package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
)

func TestNewWatcherRequiresDir(t *testing.T) {
	if _, err := NewWatcher(config.InboxConfig{}); err == nil {
		t.Fatalf("NewWatcher() expected error for empty dir")
	}
}

func TestIgnored(t *testing.T) {
	w, err := NewWatcher(config.InboxConfig{Dir: t.TempDir(), Ignore: []string{"draft-*"}})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{".report.pdf", true},
		{"report.pdf.part", true},
		{"report.pdf.crdownload", true},
		{"draft-notes.pdf", true},
	}
	for _, tt := range tests {
		if got := w.Ignored(filepath.Join(w.Dir(), tt.name)); got != tt.want {
			t.Fatalf("Ignored(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRunDeliversSettledFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(config.InboxConfig{Dir: dir}, WithSettle(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { got <- path })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("%PDF"), 0644); err != nil {
		t.Fatalf("write hidden: %v", err)
	}
	want := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(want, []byte("%PDF-1.7"), 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	select {
	case path := <-got:
		if path != want {
			t.Fatalf("delivered %q, want %q", path, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for inbox delivery")
	}

	select {
	case extra := <-got:
		t.Fatalf("unexpected second delivery %q", extra)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
