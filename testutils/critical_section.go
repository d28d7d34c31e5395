// Package testutils holds shared helpers for protocol tests.
package testutils

import (
	"sync"
	"time"
)

// CriticalSection is a probe standing in for the exclusive resource. It
// records every entry and counts overlapping holders, which must never
// happen if the protocol under test preserves mutual exclusion.
type CriticalSection struct {
	mu         sync.Mutex
	busy       bool
	entries    int
	violations int
}

// Work holds the critical section for d, recording a violation if
// another holder is already inside.
func (cs *CriticalSection) Work(d time.Duration) {
	cs.mu.Lock()
	if cs.busy {
		cs.violations++
	}
	cs.busy = true
	cs.entries++
	cs.mu.Unlock()

	time.Sleep(d)

	cs.mu.Lock()
	cs.busy = false
	cs.mu.Unlock()
}

// Entries returns how many times the section was entered.
func (cs *CriticalSection) Entries() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.entries
}

// Violations returns how many entries overlapped another holder.
func (cs *CriticalSection) Violations() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.violations
}
