package orchestrator

import (
	"sync"
	"time"
)

// Event types published on the watch stream.
const (
	EventClarificationRequested = "clarification_requested"
	EventClarificationFollowUp  = "clarification_follow_up"
	EventClarificationResolved  = "clarification_resolved"
	EventTaskCompleted          = "task_completed"
	EventTaskFailed             = "task_failed"
)

// Event is one lifecycle transition of a task.
type Event struct {
	Type          string    `json:"type"`
	Kind          string    `json:"kind,omitempty"`
	InteractionID string    `json:"interactionId,omitempty"`
	ProjectID     string    `json:"projectId,omitempty"`
	ProjectType   string    `json:"projectType,omitempty"`
	Questions     []string  `json:"questions,omitempty"`
	Message       string    `json:"message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Broadcaster fans events out to subscribers. Slow subscribers lose their
// oldest buffered event instead of blocking the publisher.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan Event{}}
}

// Subscribe registers a listener. The cancel func unregisters it and
// closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber without blocking.
func (b *Broadcaster) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- evt:
		default:
		}
	}
}
