package inbox

import (
	"context"
	"time"
)

type settledPath struct {
	path string
	gen  uint64
}

type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

// settleQueue debounces paths. A timer that already fired cannot be recalled, so
// every touch starts a new generation and only the latest one is taken.
type settleQueue struct {
	settle  time.Duration
	out     chan settledPath
	pending map[string]pendingFile
	next    uint64
}

func newSettleQueue(settle time.Duration) *settleQueue {
	return &settleQueue{
		settle:  settle,
		out:     make(chan settledPath, 16),
		pending: make(map[string]pendingFile),
	}
}

func (q *settleQueue) touch(ctx context.Context, path string) {
	if p, ok := q.pending[path]; ok {
		p.timer.Stop()
	}
	q.next++
	s := settledPath{path: path, gen: q.next}
	q.pending[path] = pendingFile{
		gen: s.gen,
		timer: time.AfterFunc(q.settle, func() {
			select {
			case q.out <- s:
			case <-ctx.Done():
			}
		}),
	}
}

// take reports whether s is the latest generation for its path and forgets the path if so.
func (q *settleQueue) take(s settledPath) bool {
	p, ok := q.pending[s.path]
	if !ok || p.gen != s.gen {
		return false
	}
	delete(q.pending, s.path)
	return true
}

func (q *settleQueue) stop() {
	for _, p := range q.pending {
		p.timer.Stop()
	}
}
