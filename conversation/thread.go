package conversation

import (
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/remote"
	"github.com/google/uuid"
)

type Message struct {
	ID        string
	Role      remote.Role
	Content   string
	Sources   []string
	CreatedAt time.Time
	// Tentative marks messages appended locally and not yet replaced by server history.
	Tentative bool
	// Synthetic marks a locally generated error reply, never sent by the service.
	Synthetic bool
}

// Thread holds the messages of one session. The Machine guards it.
type Thread struct {
	sessionID string
	messages  []Message
	inFlight  bool
	loaded    bool
}

func newThread(sessionID string) *Thread {
	return &Thread{sessionID: sessionID}
}

func (t *Thread) append(m Message) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	t.messages = append(t.messages, m)
}

// replace swaps the local messages for server history, discarding every tentative record.
func (t *Thread) replace(history []remote.HistoryMessage) {
	msgs := make([]Message, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, Message{
			ID:        h.ID,
			Role:      h.Role,
			Content:   h.Content,
			Sources:   h.Sources,
			CreatedAt: h.CreatedAt.Time,
		})
	}
	t.messages = msgs
	t.loaded = true
}

func (t *Thread) snapshot() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}
