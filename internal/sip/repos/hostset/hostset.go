// Package hostset provides an insertion-ordered, concurrency-safe
// string set. It backs the locator's two administrative registries
// (local hostnames and supported transports), which are read on every
// resolution but mutated rarely.
package hostset

import "sync"

// Set is a copy-on-write string set. Mutations build a fresh slice
// under the write lock, so a slice handed out by Snapshot is never
// modified afterwards: a resolution that grabbed a snapshot keeps
// seeing the membership it started with.
type Set struct {
	mu    sync.RWMutex
	names []string
}

// New creates a Set seeded with the given names. Duplicates are
// dropped, first occurrence wins the position.
func New(names ...string) *Set {
	s := &Set{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends name to the set if not already present. Insertion order
// is preserved and is the order Snapshot reports.
func (s *Set) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.names {
		if n == name {
			return
		}
	}
	next := make([]string, len(s.names)+1)
	copy(next, s.names)
	next[len(s.names)] = name
	s.names = next
}

// Remove deletes name from the set if present.
func (s *Set) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.names {
		if n == name {
			next := make([]string, 0, len(s.names)-1)
			next = append(next, s.names[:i]...)
			next = append(next, s.names[i+1:]...)
			s.names = next
			return
		}
	}
}

// Contains reports whether name is currently a member.
func (s *Set) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Snapshot returns the current membership in insertion order. The
// returned slice must not be modified by the caller.
func (s *Set) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names
}

// Len returns the current number of members.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}
