package engine

import (
	"slices"

	"github.com/roach88/factstore/internal/ir"
)

// Listener receives every change. Batches, SetMany, and Clear end with one
// aggregate call where key is AggregateKey and both values are nil.
type Listener func(key string, newValue, oldValue ir.Value)

// KeyListener receives changes to a single key.
// A nil newValue means the key was removed.
type KeyListener func(newValue, oldValue ir.Value)

// subscription is one registration. The same function registered twice
// yields two independent subscriptions.
type subscription struct {
	global Listener
	keyed  KeyListener
	active bool // false once unsubscribed
}

// bus delivers change events to global and per-key listeners.
type bus struct {
	global []*subscription
	keyed  map[string][]*subscription

	// recovered is called when a listener panics.
	recovered func(key string, r any)
}

func newBus(recovered func(key string, r any)) *bus {
	return &bus{
		keyed:     make(map[string][]*subscription),
		recovered: recovered,
	}
}

func (b *bus) subscribe(fn Listener) func() {
	s := &subscription{global: fn, active: true}
	b.global = append(b.global, s)
	return func() {
		if !s.active {
			return
		}
		s.active = false
		b.global = removeSubscription(b.global, s)
	}
}

func (b *bus) subscribeKey(key string, fn KeyListener) func() {
	s := &subscription{keyed: fn, active: true}
	b.keyed[key] = append(b.keyed[key], s)
	return func() {
		if !s.active {
			return
		}
		s.active = false
		remaining := removeSubscription(b.keyed[key], s)
		if len(remaining) == 0 {
			delete(b.keyed, key)
			return
		}
		b.keyed[key] = remaining
	}
}

// removeSubscription returns list without s. The input slice is not
// modified, so snapshots taken by in-flight deliveries stay intact.
func removeSubscription(list []*subscription, s *subscription) []*subscription {
	out := make([]*subscription, 0, len(list))
	for _, other := range list {
		if other != s {
			out = append(out, other)
		}
	}
	return out
}

// publish delivers one change to key listeners, then global listeners.
//
// Each channel iterates a copy of its subscriber list taken when delivery
// starts. A listener subscribed mid-cycle first fires on the next delivery;
// one unsubscribed mid-cycle is skipped if it has not run yet.
func (b *bus) publish(key string, newValue, oldValue ir.Value) {
	b.publishKey(key, newValue, oldValue)
	b.publishGlobal(key, newValue, oldValue)
}

func (b *bus) publishKey(key string, newValue, oldValue ir.Value) {
	subs := b.keyed[key]
	if len(subs) == 0 {
		return
	}
	for _, s := range slices.Clone(subs) {
		if !s.active {
			continue
		}
		b.call(key, func() { s.keyed(newValue, oldValue) })
	}
}

func (b *bus) publishGlobal(key string, newValue, oldValue ir.Value) {
	if len(b.global) == 0 {
		return
	}
	for _, s := range slices.Clone(b.global) {
		if !s.active {
			continue
		}
		b.call(key, func() { s.global(key, newValue, oldValue) })
	}
}

// call runs one listener, recovering a panic so delivery continues.
func (b *bus) call(key string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			listenerPanicsTotal.Inc()
			if b.recovered != nil {
				b.recovered(key, r)
			}
		}
	}()
	fn()
}

// listenerCount returns the number of live subscriptions.
func (b *bus) listenerCount() int {
	n := len(b.global)
	for _, subs := range b.keyed {
		n += len(subs)
	}
	return n
}
