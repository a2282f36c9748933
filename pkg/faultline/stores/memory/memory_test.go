package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

func TestStore_GroupsByChecksum(t *testing.T) {
	store := New()
	ctx := context.Background()

	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	handle, err := store.Save(ctx, &faultline.Event{
		EventID:   "e1",
		Checksum:  "abc",
		Message:   "timed out after 5s",
		Timestamp: first,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if handle.Occurrences != 1 || handle.GroupID != "abc" {
		t.Errorf("first handle = %+v", handle)
	}

	second := first.Add(time.Minute)
	handle, err = store.Save(ctx, &faultline.Event{
		EventID:   "e2",
		Checksum:  "abc",
		Message:   "timed out after 30s",
		Timestamp: second,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if handle.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", handle.Occurrences)
	}
	if !handle.FirstSeen.Equal(first) || !handle.LastSeen.Equal(second) {
		t.Errorf("seen range = (%v, %v), want (%v, %v)",
			handle.FirstSeen, handle.LastSeen, first, second)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1 group", store.Len())
	}

	last, ok := store.LastEvent("abc")
	if !ok || last.EventID != "e2" {
		t.Errorf("LastEvent = (%+v, %v), want the second event", last, ok)
	}
}

func TestStore_DistinctChecksums(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Save(ctx, &faultline.Event{Checksum: "abc"})
	store.Save(ctx, &faultline.Event{Checksum: "def"})

	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
	if got := store.Occurrences("abc"); got != 1 {
		t.Errorf("Occurrences(abc) = %d, want 1", got)
	}
	if got := store.Occurrences("missing"); got != 0 {
		t.Errorf("Occurrences(missing) = %d, want 0", got)
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Save(ctx, &faultline.Event{Checksum: "abc"})
		}()
	}
	wg.Wait()

	if got := store.Occurrences("abc"); got != 50 {
		t.Errorf("Occurrences = %d, want 50", got)
	}
}
