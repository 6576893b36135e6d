package notify

import "time"

const DefaultLifetime = 5 * time.Second

// Entry is a notification currently on screen.
type Entry struct {
	Notification
	DeliveredAt time.Time
	ExpiresAt   time.Time
}

// Tray is the active set held by the subscriber. Timer expiry and manual dismissal
// both go through Dismiss, so whichever runs second is a no-op.
type Tray struct {
	lifetime time.Duration
	entries  []Entry
}

func NewTray(lifetime time.Duration) Tray {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return Tray{lifetime: lifetime}
}

func (t *Tray) Lifetime() time.Duration {
	return t.lifetime
}

// Deliver adds n to the active set; its lifetime starts at now.
func (t *Tray) Deliver(n Notification, now time.Time) Entry {
	e := Entry{
		Notification: n,
		DeliveredAt:  now,
		ExpiresAt:    now.Add(t.lifetime),
	}
	t.entries = append(t.entries, e)
	return e
}

// Dismiss removes the entry with id. It reports whether anything was removed.
func (t *Tray) Dismiss(id string) bool {
	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// DismissOldest removes the entry delivered first, if any.
func (t *Tray) DismissOldest() bool {
	if len(t.entries) == 0 {
		return false
	}
	return t.Dismiss(t.entries[0].ID)
}

// Expire drops every entry whose lifetime has elapsed at now and returns their ids.
func (t *Tray) Expire(now time.Time) []string {
	var expired []string
	kept := t.entries[:0:0]
	for _, e := range t.entries {
		if !now.Before(e.ExpiresAt) {
			expired = append(expired, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	return expired
}

// Active returns the entries still visible at now, oldest first.
func (t *Tray) Active(now time.Time) []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if now.Before(e.ExpiresAt) {
			out = append(out, e)
		}
	}
	return out
}

func (t *Tray) Len() int {
	return len(t.entries)
}
