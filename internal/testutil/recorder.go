package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/factstore/internal/ir"
)

// Event is one recorded change delivery. Nil values mean absent.
type Event struct {
	Key string
	New ir.Value
	Old ir.Value
}

// String renders the event as "key: old -> new".
func (e Event) String() string {
	return fmt.Sprintf("%s: %s -> %s", e.Key, render(e.Old), render(e.New))
}

func render(v ir.Value) string {
	if v == nil {
		return "<absent>"
	}
	if s, ok := v.(ir.String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return v.String()
}

// EventRecorder collects change events in delivery order.
//
// Listener and KeyListener return plain funcs that are assignable to
// engine.Listener and engine.KeyListener.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Listener returns a global listener that records every event.
func (r *EventRecorder) Listener() func(key string, newValue, oldValue ir.Value) {
	return func(key string, newValue, oldValue ir.Value) {
		r.add(Event{Key: key, New: newValue, Old: oldValue})
	}
}

// KeyListener returns a per-key listener that records events under key.
func (r *EventRecorder) KeyListener(key string) func(newValue, oldValue ir.Value) {
	return func(newValue, oldValue ir.Value) {
		r.add(Event{Key: key, New: newValue, Old: oldValue})
	}
}

func (r *EventRecorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the key of each recorded event, in order.
func (r *EventRecorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.events))
	for i, ev := range r.events {
		keys[i] = ev.Key
	}
	return keys
}

// Count returns how many events were recorded for key.
func (r *EventRecorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Key == key {
			n++
		}
	}
	return n
}

// Len returns the number of recorded events.
func (r *EventRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset discards all recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
