package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// FeedCap bounds the notification feed; the oldest entry is dropped once the
// cap is reached.
const FeedCap = 50

// Sink receives every event as it is added, for delivery outside the feed
// (OS notification, terminal bell, etc). Implementations must not block.
type Sink interface {
	Notify(Event)
}

// Notifier is the process-lifetime operator notification feed. Newest entry
// first, capped, never persisted.
type Notifier struct {
	mu     sync.Mutex
	events []Event
	sink   Sink
}

func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

func (n *Notifier) Add(title, message string, kind EventKind, orderID string) Event {
	e := Event{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Kind:      kind,
		OrderID:   orderID,
		CreatedAt: time.Now(),
	}

	n.mu.Lock()
	n.events = append(n.events, Event{})
	copy(n.events[1:], n.events)
	n.events[0] = e
	if len(n.events) > FeedCap {
		n.events = n.events[:FeedCap]
	}
	sink := n.sink
	n.mu.Unlock()

	if sink != nil {
		sink.Notify(e)
	}
	return e
}

func (n *Notifier) Remove(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range n.events {
		if e.ID == id {
			n.events = append(n.events[:i], n.events[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

// List returns a copy of the feed, most recent first.
func (n *Notifier) List() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}
