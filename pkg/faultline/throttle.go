// throttle.go rate-limits repeated identical errors within a time window
// using a shared counter store.

package faultline

import (
	"fmt"
	"sync"
	"time"
)

// CounterStore is the shared counter backend for the throttle gate.
// Implementations must be safe for concurrent Add and Incr from multiple
// callers; the gate tolerates races near the window boundary.
type CounterStore interface {
	// Add registers key with an expiry if it is absent or expired. Returns
	// true when the key was added, false when a live entry already existed.
	Add(key string, ttl time.Duration) (bool, error)

	// Incr atomically increments key and returns the new count. Returns an
	// error when the key is absent or expired.
	Incr(key string) (int, error)
}

// Gate suppresses events whose (class name, checksum) pair repeats more
// than maxCount times inside window. A zero window or count disables the
// gate entirely.
type Gate struct {
	store    CounterStore
	window   time.Duration
	maxCount int
}

// NewGate creates a throttle gate over store.
func NewGate(store CounterStore, window time.Duration, maxCount int) *Gate {
	return &Gate{store: store, window: window, maxCount: maxCount}
}

// ShouldSuppress reports whether this occurrence should be dropped.
//
// Counter-store faults are treated as count zero: letting a few extra
// events through is preferred over silently dropping a first-ever error.
func (g *Gate) ShouldSuppress(className, checksum string) bool {
	if g == nil || g.store == nil || g.window <= 0 || g.maxCount <= 0 {
		return false
	}

	key := "faultline:" + className + ":" + checksum

	added, err := g.store.Add(key, g.window)
	if err != nil || added {
		return false
	}

	count, err := g.store.Incr(key)
	if err != nil {
		count = 0
	}
	return count > g.maxCount
}

// MemoryCounterStore is a process-local CounterStore. It satisfies the
// gate's contract for single-process deployments; multi-process setups
// should back the gate with a shared store instead.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	now      func() time.Time
}

type counterEntry struct {
	count   int
	expires time.Time
}

// NewMemoryCounterStore creates an empty in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*counterEntry),
		now:      time.Now,
	}
}

// Add registers key with ttl when absent or expired.
func (s *MemoryCounterStore) Add(key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.counters[key]; ok && e.expires.After(now) {
		return false, nil
	}
	s.counters[key] = &counterEntry{count: 1, expires: now.Add(ttl)}
	return true, nil
}

// Incr increments a live key and returns the new count.
func (s *MemoryCounterStore) Incr(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok || !e.expires.After(s.now()) {
		delete(s.counters, key)
		return 0, fmt.Errorf("counter %q is absent or expired", key)
	}
	e.count++
	return e.count, nil
}
