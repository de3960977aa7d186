// Package locking provides closure-scoped mutual exclusion.
//
// The zero value of Scoped is ready to use. The lock is released on every
// exit path of the guarded closure, including panics. Scoped is NOT
// reentrant: calling Do from within a guarded closure on the same Scoped
// deadlocks. That is caller responsibility, not a defect.
package locking

import "sync"

// Scoped guards a critical section expressed as a closure.
type Scoped struct {
	mu sync.Mutex
}

// Do runs fn while holding the lock.
func (s *Scoped) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// DoErr runs fn while holding the lock and returns its error.
func (s *Scoped) DoErr(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// TryDo runs fn only if the lock can be acquired without blocking.
// It reports whether fn ran.
func (s *Scoped) TryDo(fn func()) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	fn()
	return true
}
