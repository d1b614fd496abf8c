// Package memory keeps journal events in process and fans them out to
// live subscribers.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/puzpuzpuz/xsync/v4"
)

// subscriberBuffer is the channel depth of each subscriber. A subscriber
// that falls this far behind misses events.
const subscriberBuffer = 64

type Sink struct {
	mu     sync.RWMutex
	events []journal.Event
	closed bool

	nextID      atomic.Uint64
	subscribers *xsync.Map[uint64, chan journal.Event]
	dropped     atomic.Uint64
}

func NewSink() *Sink {
	return &Sink{subscribers: xsync.NewMap[uint64, chan journal.Event]()}
}

func (s *Sink) Publish(ctx context.Context, events []journal.Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return journal.ErrClosed
	}
	s.events = append(s.events, events...)
	s.mu.Unlock()

	// Subscriptions end under the write lock, so no channel closes mid-send
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range events {
		s.subscribers.Range(func(_ uint64, ch chan journal.Event) bool {
			select {
			case ch <- ev:
			default:
				s.dropped.Add(1)
			}
			return true
		})
	}
	return nil
}

func (s *Sink) List(ctx context.Context, record string) ([]journal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []journal.Event
	for _, ev := range s.events {
		if record == "" || ev.Record == record {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Subscribe returns a channel receiving every event published afterwards
// and a function that ends the subscription. The channel of a closed sink
// is already closed.
func (s *Sink) Subscribe() (<-chan journal.Event, func()) {
	ch := make(chan journal.Event, subscriberBuffer)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID.Add(1)
	s.subscribers.Store(id, ch)
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if ch, ok := s.subscribers.LoadAndDelete(id); ok {
				close(ch)
			}
		})
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	s.subscribers.Range(func(id uint64, ch chan journal.Event) bool {
		if ch, ok := s.subscribers.LoadAndDelete(id); ok {
			close(ch)
		}
		return true
	})
	return nil
}
