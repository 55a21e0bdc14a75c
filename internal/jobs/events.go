package jobs

import (
	"sync"
	"time"

	"upload-ai/internal/domain"
)

// EventType classifies messages emitted during a submission.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeLog      EventType = "log"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq          int64         `json:"seq"`
	Timestamp    time.Time     `json:"timestamp"`
	SubmissionID string        `json:"submissionId"`
	Type         EventType     `json:"type"`
	Status       domain.Status `json:"status,omitempty"`
	Message      string        `json:"message,omitempty"`
	Progress     float64       `json:"progress,omitempty"`
	VideoID      string        `json:"videoId,omitempty"`
	Command      string        `json:"command,omitempty"`
	Args         []string      `json:"args,omitempty"`
	ExitCode     int           `json:"exitCode,omitempty"`
	Stderr       string        `json:"stderr,omitempty"`
}

// EventBus keeps the most recent events in a fixed ring so the UI can
// poll incrementally by sequence number.
type EventBus struct {
	mu      sync.RWMutex
	nextSeq int64
	ring    []Event
	head    int
	size    int
}

// NewEventBus creates a bus holding at most capacity events.
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = 500
	}
	return &EventBus{ring: make([]Event, capacity)}
}

// Publish stamps event with the next sequence number and a timestamp,
// evicting the oldest event when full.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	idx := (b.head + b.size) % len(b.ring)
	b.ring[idx] = event
	if b.size < len(b.ring) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.ring)
	}
	return event
}

// Since returns retained events with sequence strictly greater than seq,
// oldest first.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for i := 0; i < b.size; i++ {
		event := b.ring[(b.head+i)%len(b.ring)]
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// LastSeq returns the most recently assigned sequence number.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
