package eventbus

import "sync"

// Handler receives a published event of type T.
type Handler[T any] func(event T)

// Subscription is returned by Subscribe; calling it removes the handler.
type Subscription func()

// EventSource is an in-process, single-event-type publish/subscribe
// registry. Registrations are stored in a copy-on-write slice under a
// dedicated lock; Publish takes a local snapshot before calling out, so
// handlers can subscribe/unsubscribe from within a callback without
// deadlocking the publisher.
type EventSource[T any] struct {
	mu       sync.Mutex
	handlers []*subscriber[T]
}

type subscriber[T any] struct {
	fn Handler[T]
}

// NewEventSource creates an empty EventSource.
func NewEventSource[T any]() *EventSource[T] {
	return &EventSource[T]{}
}

// Subscribe registers handler and returns a Subscription that removes it.
func (s *EventSource[T]) Subscribe(handler Handler[T]) Subscription {
	sub := &subscriber[T]{fn: handler}

	s.mu.Lock()
	next := make([]*subscriber[T], len(s.handlers)+1)
	copy(next, s.handlers)
	next[len(s.handlers)] = sub
	s.handlers = next
	s.mu.Unlock()

	return func() { s.unsubscribe(sub) }
}

func (s *EventSource[T]) unsubscribe(target *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*subscriber[T], 0, len(s.handlers))
	for _, sub := range s.handlers {
		if sub != target {
			next = append(next, sub)
		}
	}
	s.handlers = next
}

// Publish calls every currently-registered handler synchronously, in
// registration order, against a snapshot taken under the lock.
func (s *EventSource[T]) Publish(event T) {
	s.mu.Lock()
	snapshot := s.handlers
	s.mu.Unlock()

	for _, sub := range snapshot {
		sub.fn(event)
	}
}

// Len reports the current subscriber count. Intended for tests and
// diagnostics, not for control flow.
func (s *EventSource[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
