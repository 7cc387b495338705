package notification

import (
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier keeps transient messages that expire a fixed delay after Push.
type Notifier struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

func NewNotifier(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

func (n *Notifier) Push(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Level: level, Message: message, ExpiresAt: n.now().Add(n.ttl)})
}

// Pending drops expired notifications and returns the rest in push order.
func (n *Notifier) Pending() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	live := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.ExpiresAt) {
			live = append(live, it)
		}
	}
	n.items = live

	out := make([]Notification, len(live))
	copy(out, live)
	return out
}
