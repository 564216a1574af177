package event

// Package event lets listeners subscribe to synchronous notifications.
// The client core uses it to announce session state changes without binding
// itself to any UI framework's reactivity model.

import "sync"

// Listener receives events.
// We use an interface instead of a function, because functions cannot be
// compared for equality, and comparison is needed to remove a listener.
type Listener[T any] interface {
	OnEvent(ev T)
}

// Sender fans events out to its listeners.
type Sender[T any] struct {
	listenersLock sync.Mutex
	listeners     []Listener[T]
}

// AddListener registers a listener. Adding a listener twice is a no-op.
func (s *Sender[T]) AddListener(listener Listener[T]) {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	for _, l := range s.listeners {
		if l == listener {
			return
		}
	}
	s.listeners = append(s.listeners, listener)
}

// RemoveListener unregisters a listener. Removing an absent listener is a no-op.
func (s *Sender[T]) RemoveListener(listener Listener[T]) {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	for i, l := range s.listeners {
		if l == listener {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Send delivers ev to every listener, synchronously, on the calling goroutine.
// The listener list is snapshotted first, so listeners may add/remove
// listeners from inside OnEvent.
func (s *Sender[T]) Send(ev T) {
	s.listenersLock.Lock()
	list := make([]Listener[T], len(s.listeners))
	copy(list, s.listeners)
	s.listenersLock.Unlock()

	for _, l := range list {
		l.OnEvent(ev)
	}
}
