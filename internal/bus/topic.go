package bus

import "sync"

// Topic is a broadcast channel: every subscriber receives every value
// published after it subscribed. Publishing never blocks; a subscriber that
// cannot keep up drops values, counted per topic.
type Topic[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	nextID  int
	dropped uint64
	closed  bool
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]chan T)}
}

// Subscribe attaches a buffered receiver. cancel detaches it and closes the
// channel; calling cancel twice is safe.
func (t *Topic[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if sub, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// TryPublish fans the value out to all subscribers without blocking.
func (t *Topic[T]) TryPublish(v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrQueueClosed
	}
	for _, sub := range t.subs {
		select {
		case sub <- v:
		default:
			t.dropped++
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (t *Topic[T]) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close detaches and closes all subscriber channels.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, sub := range t.subs {
		delete(t.subs, id)
		close(sub)
	}
}
