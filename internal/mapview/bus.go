package mapview

import "sync"

// Subscriber buffering. Events a subscriber has no room for are queued in
// order; a subscriber that falls more than MaxBacklog events behind is cut
// off and its channel closed, so it can resubscribe and resync from a
// Snapshot.
const (
	subscriberBuffer = 64
	MaxBacklog       = 4096
)

type subscriber struct {
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	queue    []Event
	flushing bool
	closed   bool
}

// deliver hands e to the subscriber without blocking. It returns false when
// the backlog is full.
func (s *subscriber) deliver(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	if !s.flushing {
		select {
		case s.ch <- e:
			return true
		default:
		}
		s.flushing = true
		s.queue = append(s.queue, e)
		s.wg.Add(1)
		go s.flush()
		return true
	}
	if len(s.queue) >= MaxBacklog {
		return false
	}
	s.queue = append(s.queue, e)
	return true
}

func (s *subscriber) flush() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if s.closed || len(s.queue) == 0 {
			s.queue = nil
			s.flushing = false
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.mu.Unlock()

		select {
		case s.ch <- e:
		case <-s.done:
			return
		}

		s.mu.Lock()
		s.queue = s.queue[1:]
		s.mu.Unlock()
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.ch)
}

// Bus is a fan-out pub/sub for map events. Every subscriber sees every
// event in publish order until it unsubscribes or is cut off.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan Event]*subscriber
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]*subscriber)}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *Bus) Publish(e Event) {
	var overflowed []chan Event
	b.mu.RLock()
	for ch, s := range b.subs {
		if !s.deliver(e) {
			overflowed = append(overflowed, ch)
		}
	}
	b.mu.RUnlock()

	for _, ch := range overflowed {
		b.Unsubscribe(ch)
	}
}

// Subscribe returns a channel that receives events. After Close it returns
// a closed channel.
func (b *Bus) Subscribe() chan Event {
	s := &subscriber{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s.ch
	}
	b.subs[s.ch] = s
	return s.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	s, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()

	if ok {
		s.close()
	}
}

// Close unsubscribes everyone. Later subscriptions are closed at once.
func (b *Bus) Close() {
	b.mu.Lock()
	all := b.subs
	b.subs = make(map[chan Event]*subscriber)
	b.closed = true
	b.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

// Closed reports whether Close was called.
func (b *Bus) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
