// Package liveset provides an observable ordered collection of highlight
// targets. It implements the overlay.LiveSet contract: snapshot iteration
// plus change notification with a cancellation handle.
//
// Entries are keyed by caller-chosen IDs so adapters can upsert and drop
// targets as the underlying document evolves. Insertion order is preserved;
// re-adding an existing ID replaces the target in place.
package liveset

import (
	"sync"

	"github.com/hazyhaar/domhighlight/overlay"
)

type entry struct {
	id     string
	target overlay.Target
}

// Set is an observable ordered target collection. Safe for concurrent use.
// Listeners are invoked synchronously after each mutating call, outside the
// set's lock, so they may re-enter the set freely.
type Set struct {
	mu        sync.Mutex
	entries   []entry
	listeners map[int]func()
	nextKey   int
}

// New creates an empty Set.
func New() *Set {
	return &Set{listeners: make(map[int]func())}
}

// Add upserts a target under id and notifies listeners. Adding a new id
// appends; adding an existing id replaces the target, keeping its position.
func (s *Set) Add(id string, t overlay.Target) {
	s.mu.Lock()
	replaced := false
	for i := range s.entries {
		if s.entries[i].id == id {
			s.entries[i].target = t
			replaced = true
			break
		}
	}
	if !replaced {
		s.entries = append(s.entries, entry{id: id, target: t})
	}
	fns := s.snapshotListeners()
	s.mu.Unlock()

	notify(fns)
}

// Remove drops the target under id and notifies listeners. Returns false
// (without notifying) when the id is not present.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.entries {
		if s.entries[i].id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	fns := s.snapshotListeners()
	s.mu.Unlock()

	notify(fns)
	return true
}

// Sync replaces the whole membership in one pass: ids absent from keep are
// dropped, present ids keep their position but have their target refreshed
// via lookup (element handles can go stale between resolutions), and new
// ids are appended in keep's order. Listeners are notified once, and only
// when membership actually changed.
func (s *Set) Sync(keep []string, lookup func(id string) overlay.Target) {
	s.mu.Lock()
	wanted := make(map[string]int, len(keep))
	for i, id := range keep {
		wanted[id] = i
	}

	changed := false
	kept := s.entries[:0]
	for _, e := range s.entries {
		if _, ok := wanted[e.id]; ok {
			e.target = lookup(e.id)
			kept = append(kept, e)
			delete(wanted, e.id)
		} else {
			changed = true
		}
	}
	s.entries = kept
	for _, id := range keep {
		if _, ok := wanted[id]; ok {
			s.entries = append(s.entries, entry{id: id, target: lookup(id)})
			delete(wanted, id)
			changed = true
		}
	}

	var fns []func()
	if changed {
		fns = s.snapshotListeners()
	}
	s.mu.Unlock()

	notify(fns)
}

// Targets returns a fresh snapshot of current members in insertion order.
func (s *Set) Targets() []overlay.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]overlay.Target, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.target
	}
	return out
}

// IDs returns the current member IDs in insertion order.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.id
	}
	return out
}

// Len returns the current member count.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OnChange registers a membership-change listener and returns its
// cancellation handle. The handle is safe to call more than once.
func (s *Set) OnChange(fn func()) (cancel func()) {
	s.mu.Lock()
	key := s.nextKey
	s.nextKey++
	s.listeners[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, key)
		s.mu.Unlock()
	}
}

// snapshotListeners copies the listener map while s.mu is held, in
// registration order.
func (s *Set) snapshotListeners() []func() {
	fns := make([]func(), 0, len(s.listeners))
	for key := 0; key < s.nextKey; key++ {
		if fn, ok := s.listeners[key]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func notify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
