// Package core provides the event fan-out primitive shared by the services
// that expose a watch channel.
package core

import "sync"

// Observer is notified of every event published on the observable it is
// registered to.
type Observer interface {
	NotifyCallback(event interface{})
}

// Observable routes events to a dynamic set of observers.
type Observable interface {
	// Add registers the observer so that it receives the events published
	// after the call.
	Add(observer Observer)

	// Remove unregisters the observer. Events published after the call are
	// not delivered to it.
	Remove(observer Observer)

	// Notify publishes an event to every registered observer.
	Notify(event interface{})
}

// Watcher delivers events synchronously to its observers, one after the
// other. A slow observer therefore delays the publication, which keeps the
// event order identical for everyone.
//
// - implements core.Observable
type Watcher struct {
	mu        sync.RWMutex
	observers map[Observer]struct{}
}

// NewWatcher creates a watcher with no observer.
func NewWatcher() *Watcher {
	return &Watcher{
		observers: make(map[Observer]struct{}),
	}
}

// Add implements core.Observable. It registers the observer if it is not
// already.
func (w *Watcher) Add(observer Observer) {
	w.mu.Lock()
	w.observers[observer] = struct{}{}
	w.mu.Unlock()
}

// Remove implements core.Observable. It unregisters the observer if it is
// registered.
func (w *Watcher) Remove(observer Observer) {
	w.mu.Lock()
	delete(w.observers, observer)
	w.mu.Unlock()
}

// Notify implements core.Observable. It delivers the event to the observers
// registered at the time of the call.
func (w *Watcher) Notify(event interface{}) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for obs := range w.observers {
		obs.NotifyCallback(event)
	}
}
