// store.go defines the local delivery collaborator used when no remote
// endpoints are configured.

package faultline

import (
	"context"
	"time"
)

// StoredEvent is the handle a Store returns for an ingested event.
type StoredEvent struct {
	// GroupID identifies the group the event joined, normally its checksum.
	GroupID string

	// EventID is the identifier of the ingested occurrence.
	EventID string

	// Occurrences is the number of occurrences seen for the group,
	// including this one.
	Occurrences int

	FirstSeen time.Time
	LastSeen  time.Time
}

// Store ingests canonical events, grouping equivalent occurrences by
// checksum. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, event *Event) (*StoredEvent, error)
}

// noopStoreInternal discards events. The default store when none is
// configured; lives here rather than in a stores subpackage to avoid
// import cycles.
type noopStoreInternal struct{}

func (noopStoreInternal) Save(ctx context.Context, event *Event) (*StoredEvent, error) {
	return &StoredEvent{
		GroupID:     event.Checksum,
		EventID:     event.EventID,
		Occurrences: 1,
		FirstSeen:   event.Timestamp,
		LastSeen:    event.Timestamp,
	}, nil
}
