package notify

import "sync"

// Recorder is an Emitter that keeps everything it is given. Plain CLI commands use it
// to report the outcome of a run after the fact.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Emit(text string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Message: text, Severity: severity})
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification with severity, if any.
func (r *Recorder) Last(severity Severity) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].Severity == severity {
			return r.items[i], true
		}
	}
	return Notification{}, false
}
