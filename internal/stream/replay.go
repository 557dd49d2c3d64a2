// Package stream provides a small replay-latest multicast primitive used for
// the session and current-user streams.
package stream

import "sync"

// subscriberBuffer bounds each subscriber channel. A slow subscriber loses the
// oldest buffered values, never the most recent one.
const subscriberBuffer = 16

// Replay is a multicast broadcaster that replays the most recent value to late
// subscribers and optionally suppresses consecutive duplicates. The zero value
// is not usable; construct with NewReplay.
type Replay[T any] struct {
	mu     sync.Mutex
	eq     func(a, b T) bool
	subs   map[int]chan T
	nextID int
	latest T
	primed bool
	closed bool
}

// NewReplay creates a broadcaster. When eq is non-nil, a published value equal
// to the previous one is suppressed.
func NewReplay[T any](eq func(a, b T) bool) *Replay[T] {
	return &Replay[T]{
		eq:   eq,
		subs: make(map[int]chan T),
	}
}

// Publish delivers v to all subscribers and remembers it for late ones. It
// reports whether the value was actually emitted; duplicates of the previous
// value and publishes after Close are suppressed.
func (r *Replay[T]) Publish(v T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if r.primed && r.eq != nil && r.eq(r.latest, v) {
		return false
	}

	r.latest = v
	r.primed = true

	for _, ch := range r.subs {
		sendLatest(ch, v)
	}

	return true
}

// Latest returns the most recent published value, if any.
func (r *Replay[T]) Latest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.latest, r.primed
}

// Subscribe registers a new subscriber. The most recent value, when present,
// is delivered immediately. The cancel func releases the subscription and
// closes the channel; it is safe to call more than once.
func (r *Replay[T]) Subscribe() (<-chan T, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if r.closed {
		close(ch)

		return ch, func() {}
	}

	if r.primed {
		ch <- r.latest
	}

	id := r.nextID
	r.nextID++
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// Close terminates the stream. All subscriber channels are closed and further
// publishes are dropped.
func (r *Replay[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

// sendLatest enqueues v, evicting the oldest buffered value when the
// subscriber has fallen behind. Callers hold the broadcaster mutex, so the
// drain-then-send pair cannot race with another producer.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
