// Package inbox watches a drop folder and hands over every document that lands in it.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/config"
	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// DefaultIgnore skips hidden files and partial downloads.
var DefaultIgnore = []string{".*", "*.tmp", "*.part", "*.crdownload", "*.download"}

const defaultSettle = 300 * time.Millisecond

type Watcher struct {
	dir    string
	ignore *ignore.GitIgnore
	settle time.Duration
	logger *zap.Logger
}

type Option func(*Watcher)

// WithSettle sets how long a file must stay quiet before it is handed over.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logging.OrNop(l).Named("inbox") }
}

func NewWatcher(cfg config.InboxConfig, opts ...Option) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox directory is not configured")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inbox directory: %w", err)
	}

	patterns := append(append([]string{}, DefaultIgnore...), cfg.Ignore...)
	w := &Watcher{
		dir:    dir,
		ignore: ignore.CompileIgnoreLines(patterns...),
		settle: defaultSettle,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Watcher) Dir() string {
	return w.dir
}

// Ignored reports whether name matches an ignore pattern.
func (w *Watcher) Ignored(name string) bool {
	return w.ignore.MatchesPath(filepath.Base(name))
}

// Run watches the inbox until ctx is done, calling deliver with the path of each file
// once it has settled. deliver runs on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context, deliver func(path string)) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create inbox watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", zap.String("dir", w.dir))

	queue := newSettleQueue(w.settle)
	defer queue.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if w.Ignored(ev.Name) {
				w.logger.Debug("ignoring inbox entry", zap.String("path", ev.Name))
				continue
			}
			queue.touch(ctx, ev.Name)

		case s := <-queue.out:
			if !queue.take(s) {
				continue
			}
			path := s.path
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			w.logger.Info("inbox file ready", zap.String("path", path), zap.Int64("size", info.Size()))
			deliver(path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}
