package faultline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// testStore captures events for verification in tests.
type testStore struct {
	mu      sync.Mutex
	events  []Event
	saveErr error
}

func (s *testStore) Save(ctx context.Context, event *Event) (*StoredEvent, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)

	occurrences := 0
	for _, e := range s.events {
		if e.Checksum == event.Checksum {
			occurrences++
		}
	}
	return &StoredEvent{
		GroupID:     event.Checksum,
		EventID:     event.EventID,
		Occurrences: occurrences,
		FirstSeen:   event.Timestamp,
		LastSeen:    event.Timestamp,
	}, nil
}

func (s *testStore) getEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Event, len(s.events))
	copy(result, s.events)
	return result
}

func TestClient_CaptureMessage(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store), WithServerName("web01"))

	handle := client.CaptureMessage(context.Background(), "disk full", map[string]any{"disk": "/dev/sda1"})
	if handle == nil {
		t.Fatal("CaptureMessage returned nil handle")
	}

	events := store.getEvents()
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}
	ev := events[0]

	if ev.Message != "disk full" {
		t.Errorf("Message = %q, want %q", ev.Message, "disk full")
	}
	if ev.Level != LevelError {
		t.Errorf("Level = %d, want default %d", ev.Level, LevelError)
	}
	if want := Checksum("", "disk full", ""); ev.Checksum != want {
		t.Errorf("Checksum = %q, want %q", ev.Checksum, want)
	}
	if ev.Data["disk"] != "/dev/sda1" {
		t.Errorf("Data = %v, want sanitized extra context", ev.Data)
	}
	if ev.ServerName != "web01" {
		t.Errorf("ServerName = %q, want %q", ev.ServerName, "web01")
	}
	if ev.EventID == "" || ev.Timestamp.IsZero() {
		t.Errorf("defaults not filled: id=%q ts=%v", ev.EventID, ev.Timestamp)
	}
}

func TestClient_CaptureRecord_ChecksumIgnoresArgs(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	for _, user := range []string{"alice", "bob"} {
		client.CaptureRecord(context.Background(), LogRecord{
			Logger:  "app.payments",
			Level:   LevelWarning,
			Message: "charge failed for user %s",
			Args:    []any{user},
		})
	}

	events := store.getEvents()
	if len(events) != 2 {
		t.Fatalf("stored %d events, want 2", len(events))
	}
	if events[0].Checksum != events[1].Checksum {
		t.Errorf("checksums differ across interpolated args: %q vs %q",
			events[0].Checksum, events[1].Checksum)
	}
	if events[0].Message != "charge failed for user alice" {
		t.Errorf("Message = %q, want formatted display message", events[0].Message)
	}
	if events[0].Message == events[1].Message {
		t.Error("display messages should carry the interpolated arguments")
	}
	if events[0].Level != LevelWarning || events[0].Logger != "app.payments" {
		t.Errorf("record fields not copied: level=%d logger=%q", events[0].Level, events[0].Logger)
	}
}

func TestClient_CaptureRecord_SuppliedChecksumAuthoritative(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	client.CaptureRecord(context.Background(), LogRecord{
		Message:  "whatever",
		Checksum: "cafecafecafecafecafecafecafecafe",
	})

	events := store.getEvents()
	if events[0].Checksum != "cafecafecafecafecafecafecafecafe" {
		t.Errorf("Checksum = %q, want the supplied value", events[0].Checksum)
	}
}

func TestClient_CaptureRecord_RequestContext(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	client.CaptureRecord(context.Background(), LogRecord{
		Message: "request failed",
		Request: &RequestContext{
			Method:  "POST",
			URL:     "https://example.com/checkout",
			Headers: map[string]string{"Host": "example.com"},
			Query:   map[string]string{"step": "2"},
			Form:    map[string]string{"amount": "10"},
			Cookies: map[string]string{"session": "abc"},
			RawBody: "amount=10",
		},
	})

	ev := store.getEvents()[0]
	if ev.URL != "https://example.com/checkout" {
		t.Errorf("URL = %q, want request URL", ev.URL)
	}

	meta, ok := ev.Data["META"].(map[string]any)
	if !ok {
		t.Fatalf("Data[META] = %T, want sanitized map", ev.Data["META"])
	}
	if meta["Host"] != "example.com" {
		t.Errorf("META = %v", meta)
	}
	for _, key := range []string{"GET", "POST", "COOKIES", "raw_post_data"} {
		if _, ok := ev.Data[key]; !ok {
			t.Errorf("Data missing %q", key)
		}
	}
}

func TestClient_CaptureRecord_DelegatesToExceptionPath(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	client.CaptureRecord(context.Background(), LogRecord{
		Logger:    "app.db",
		Message:   "query failed: %v",
		Args:      []any{"timeout"},
		Exception: NewExceptionInfo(errors.New("timeout"), 0),
	})

	ev := store.getEvents()[0]
	if ev.ClassName != "errorString" {
		t.Errorf("ClassName = %q, want the exception type", ev.ClassName)
	}
	if ev.Logger != "app.db" {
		t.Errorf("Logger = %q, want preserved record logger", ev.Logger)
	}
	// The record path computed the checksum from the raw template; the
	// exception path must not recompute it.
	if want := Checksum("", "query failed: %v", ""); ev.Checksum != want {
		t.Errorf("Checksum = %q, want the record-derived %q", ev.Checksum, want)
	}
	if ev.Traceback == "" {
		t.Error("Traceback not set on the exception path")
	}
}

func TestClient_CaptureError(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	handle := client.CaptureError(context.Background(), errors.New("boom"))
	if handle == nil {
		t.Fatal("CaptureError returned nil handle")
	}

	ev := store.getEvents()[0]
	if ev.Message != "boom" {
		t.Errorf("Message = %q, want derived from the error", ev.Message)
	}
	if ev.ClassName != "errorString" {
		t.Errorf("ClassName = %q", ev.ClassName)
	}
	if !strings.Contains(ev.Traceback, "TestClient_CaptureError") {
		t.Error("Traceback missing the capturing test frame")
	}

	internal, ok := ev.Data[internalKey].(map[string]any)
	if !ok {
		t.Fatalf("Data[%q] = %T, want map", internalKey, ev.Data[internalKey])
	}
	if internal["module"] != "errors" {
		t.Errorf("internal module = %v", internal["module"])
	}
	frames, ok := internal["frames"].([]any)
	if !ok || len(frames) == 0 {
		t.Errorf("internal frames = %v", internal["frames"])
	}
}

func TestClient_CaptureError_Nil(t *testing.T) {
	client := NewClient(WithStore(&testStore{}))
	if handle := client.CaptureError(context.Background(), nil); handle != nil {
		t.Errorf("CaptureError(nil) = %+v, want nil", handle)
	}
}

func TestClient_CaptureError_ThrottleSuppressesRepeat(t *testing.T) {
	store := &testStore{}
	client := NewClient(
		WithStore(store),
		WithThrottle(NewMemoryCounterStore(), 300*time.Second, 1),
	)

	err := errors.New("boom")
	var handles [2]*StoredEvent
	for i := 0; i < 2; i++ {
		handles[i] = client.CaptureError(context.Background(), err)
	}

	if handles[0] == nil {
		t.Fatal("first occurrence suppressed, want delivered")
	}
	if handles[1] != nil {
		t.Fatal("second occurrence delivered, want suppressed")
	}
	if got := len(store.getEvents()); got != 1 {
		t.Errorf("stored %d events, want 1 (no dispatch for the suppressed one)", got)
	}
}

func TestClient_FilterMutatesEvent(t *testing.T) {
	store := &testStore{}
	client := NewClient(
		WithStore(store),
		WithFilters(FilterFunc(func(ev *Event) *Event {
			ev.View = "app.views.checkout"
			return ev
		})),
	)

	client.CaptureMessage(context.Background(), "boom", nil)

	if got := store.getEvents()[0].View; got != "app.views.checkout" {
		t.Errorf("View = %q, want filter-assigned value", got)
	}
}

func TestClient_FilterVetoesEvent(t *testing.T) {
	store := &testStore{}
	client := NewClient(
		WithStore(store),
		WithFilters(FilterFunc(func(ev *Event) *Event { return nil })),
	)

	if handle := client.CaptureMessage(context.Background(), "boom", nil); handle != nil {
		t.Error("vetoed event returned a handle")
	}
	if got := len(store.getEvents()); got != 0 {
		t.Errorf("stored %d events, want 0", got)
	}
}

// tmplError simulates a template engine error that knows its origin.
type tmplError struct{ name string }

func (e *tmplError) Error() string            { return "unexpected end of block" }
func (e *tmplError) TemplateName() string     { return e.name }
func (e *tmplError) TemplateSource() (int, int) { return 104, 131 }

func TestClient_TemplateErrorOverridesView(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	client.CaptureError(context.Background(), &tmplError{name: "checkout/index.html"})

	ev := store.getEvents()[0]
	if ev.View != "checkout/index.html" {
		t.Errorf("View = %q, want the template load name", ev.View)
	}

	internal := ev.Data[internalKey].(map[string]any)
	tmpl, ok := internal["template"].(map[string]any)
	if !ok {
		t.Fatalf("internal template = %T, want map", internal["template"])
	}
	if tmpl["name"] != "checkout/index.html" {
		t.Errorf("template name = %v", tmpl["name"])
	}
}

func TestClient_CapturePanicAndRecover(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	func() {
		defer Recover(context.Background(), client)
		panic("out of cheese")
	}()

	events := store.getEvents()
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}
	ev := events[0]

	if ev.Level != LevelFatal {
		t.Errorf("Level = %d, want %d", ev.Level, LevelFatal)
	}
	if ev.Message != "out of cheese" {
		t.Errorf("Message = %q", ev.Message)
	}
	if ev.ClassName != "panic" {
		t.Errorf("ClassName = %q, want %q", ev.ClassName, "panic")
	}
}

func TestClient_RecoverWithoutPanic(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	func() {
		defer Recover(context.Background(), client)
	}()

	if got := len(store.getEvents()); got != 0 {
		t.Errorf("stored %d events, want 0", got)
	}
}

func TestClient_ExceptionArgsTruncated(t *testing.T) {
	store := &testStore{}
	client := NewClient(WithStore(store))

	client.CaptureError(context.Background(), errors.New(strings.Repeat("x", 500)))

	internal := store.getEvents()[0].Data[internalKey].(map[string]any)
	args := internal["args"].([]any)
	arg := args[0].(string)
	if len(arg) > maxStringLen+len(truncationMarker) {
		t.Errorf("exception arg length = %d, want bounded", len(arg))
	}
}

func TestClient_ReloadModules(t *testing.T) {
	client := NewClient(WithIncludePaths("app.legacy"))

	before := client.modules.prefixes()
	if !containsPrefix(before, "app.legacy") {
		t.Fatalf("prefixes = %v, want to include app.legacy", before)
	}

	client.ReloadModules("app.next")
	after := client.modules.prefixes()
	if containsPrefix(after, "app.legacy") || !containsPrefix(after, "app.next") {
		t.Errorf("prefixes after reload = %v", after)
	}
}

func containsPrefix(prefixes []string, want string) bool {
	for _, p := range prefixes {
		if p == want {
			return true
		}
	}
	return false
}
