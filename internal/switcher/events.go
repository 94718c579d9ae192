package switcher

import (
	"sync"
	"time"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// EventKind distinguishes phase transitions from terminal outcomes.
type EventKind string

const (
	EventPhase      EventKind = "phase"
	EventCommitted  EventKind = "committed"
	EventFailed     EventKind = "failed"
	EventRolledBack EventKind = "rolled_back"
	EventTheme      EventKind = "theme"
)

// Event is delivered to subscribers in the order the loop produced it.
type Event struct {
	Attempt string
	Kind    EventKind
	Phase   Phase
	Segment catalog.SegmentID
	// Warning is the joined non-fatal warning of a committed attempt.
	Warning error
	Err     error
	At      time.Time
}

type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (s *subscribers) add(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]chan Event)
	}
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	// closeAll may already have closed ch; only the remover closes it.
	return ch, func() {
		s.mu.Lock()
		_, ok := s.subs[id]
		delete(s.subs, id)
		s.mu.Unlock()
		if ok {
			close(ch)
		}
	}
}

// publish never blocks; a subscriber with a full buffer misses the event.
func (s *subscribers) publish(ev Event) (dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
