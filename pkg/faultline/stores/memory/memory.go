// Package memory provides an in-process store that groups events by
// checksum. Suitable for tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// Store groups ingested events by checksum in memory.
type Store struct {
	mu     sync.Mutex
	groups map[string]*group
}

type group struct {
	firstSeen   time.Time
	lastSeen    time.Time
	occurrences int
	lastEvent   faultline.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{groups: make(map[string]*group)}
}

// Save ingests an event, creating or updating its checksum group.
func (s *Store) Save(ctx context.Context, event *faultline.Event) (*faultline.StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[event.Checksum]
	if !ok {
		g = &group{firstSeen: event.Timestamp}
		s.groups[event.Checksum] = g
	}
	g.occurrences++
	g.lastSeen = event.Timestamp
	g.lastEvent = *event

	return &faultline.StoredEvent{
		GroupID:     event.Checksum,
		EventID:     event.EventID,
		Occurrences: g.occurrences,
		FirstSeen:   g.firstSeen,
		LastSeen:    g.lastSeen,
	}, nil
}

// Occurrences returns how many events the given checksum group has seen.
func (s *Store) Occurrences(checksum string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.groups[checksum]; ok {
		return g.occurrences
	}
	return 0
}

// Len returns the number of distinct groups.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// LastEvent returns a copy of the most recent event in a group and whether
// the group exists.
func (s *Store) LastEvent(checksum string) (faultline.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[checksum]
	if !ok {
		return faultline.Event{}, false
	}
	return g.lastEvent, true
}
