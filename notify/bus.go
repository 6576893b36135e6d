// Package notify carries transient user-facing notifications from the components
// that produce them to whichever surface is currently mounted.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/logging"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

type Notification struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Emitter is the producer side of the bus. Components depend on this, not on *Bus.
type Emitter interface {
	Emit(text string, severity Severity)
}

type Handler func(Notification)

const topic = "notifications"

// Bus delivers notifications to at most one subscriber, in emission order.
// Publishing blocks until the subscriber has handled the notification, so a handler
// must never call Emit itself.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	active *subscription
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) stop() {
	s.cancel()
	<-s.done
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{BlockPublishUntilSubscriberAck: true},
			watermill.NopLogger{},
		),
		logger: logging.OrNop(logger).Named("notify"),
		now:    time.Now,
	}
}

// Emit publishes a notification. It never fails: without a subscriber, or after Close,
// the notification is dropped.
func (b *Bus) Emit(text string, severity Severity) {
	n := Notification{
		ID:       uuid.NewString(),
		Message:  text,
		Severity: severity,
		At:       b.now(),
	}
	payload, err := json.Marshal(n)
	if err != nil {
		b.logger.Warn("failed to encode notification", zap.Error(err))
		return
	}
	if err := b.pubSub.Publish(topic, message.NewMessage(n.ID, payload)); err != nil {
		b.logger.Debug("notification dropped", zap.String("id", n.ID), zap.Error(err))
		return
	}
	b.logger.Debug("notification emitted",
		zap.String("id", n.ID),
		zap.String("severity", string(severity)),
		zap.String("message", text))
}

// Subscribe registers handler as the single active listener, replacing any previous
// one. The returned func detaches it; it is safe to call more than once.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	prev := b.active
	b.active = nil
	b.mu.Unlock()
	if prev != nil {
		prev.stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		cancel()
		b.logger.Warn("subscribe failed", zap.Error(err))
		return func() {}
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range messages {
			var n Notification
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				b.logger.Warn("undecodable notification", zap.Error(err))
			} else {
				handler(n)
			}
			msg.Ack()
		}
	}()

	b.mu.Lock()
	b.active = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.active == sub {
				b.active = nil
			}
			b.mu.Unlock()
			sub.stop()
		})
	}
}

// Close detaches the subscriber and shuts the bus down.
func (b *Bus) Close() error {
	b.mu.Lock()
	sub := b.active
	b.active = nil
	b.mu.Unlock()
	if sub != nil {
		sub.stop()
	}
	return b.pubSub.Close()
}
