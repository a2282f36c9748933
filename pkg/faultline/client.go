// client.go assembles canonical events from raw captures and runs them
// through the processing pipeline.

package faultline

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultTimeout bounds each remote delivery attempt when no timeout is
// configured.
const defaultTimeout = 5 * time.Second

// Client canonicalizes raw captures into events and delivers them. Safe
// for concurrent use; the pipeline is synchronous per call.
type Client struct {
	logger     *zap.Logger
	serverName string

	endpoints  []string
	key        string
	timeout    time.Duration
	httpClient *http.Client

	gate    *Gate
	filters []Filter
	store   Store

	excludePaths []string
	modules      *moduleCache
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for delivery failures and the local
// logging fallback. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithServerName sets the reporting host name. Defaults to os.Hostname.
func WithServerName(name string) Option {
	return func(c *Client) { c.serverName = name }
}

// WithEndpoints sets the remote collector URLs. Without endpoints, events
// are delivered to the local store instead.
func WithEndpoints(urls ...string) Option {
	return func(c *Client) { c.endpoints = append(c.endpoints, urls...) }
}

// WithKey sets the shared authentication token sent with each delivery.
func WithKey(key string) Option {
	return func(c *Client) { c.key = key }
}

// WithTimeout bounds each remote delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithThrottle enables the throttle gate: occurrences of one (class name,
// checksum) pair beyond maxCount inside window are suppressed.
func WithThrottle(store CounterStore, window time.Duration, maxCount int) Option {
	return func(c *Client) { c.gate = NewGate(store, window, maxCount) }
}

// WithFilters appends filters to the chain, run in registration order.
func WithFilters(filters ...Filter) Option {
	return func(c *Client) { c.filters = append(c.filters, filters...) }
}

// WithStore sets the local store collaborator used when no endpoints are
// configured.
func WithStore(store Store) Option {
	return func(c *Client) { c.store = store }
}

// WithIncludePaths adds module path prefixes treated as application code
// by the origin resolver, on top of the main module path.
func WithIncludePaths(prefixes ...string) Option {
	return func(c *Client) { c.modules.include = append(c.modules.include, prefixes...) }
}

// WithExcludePaths adds module path prefixes the origin resolver will not
// let overwrite an existing best guess.
func WithExcludePaths(prefixes ...string) Option {
	return func(c *Client) { c.excludePaths = append(c.excludePaths, prefixes...) }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		logger:  zap.NewNop(),
		timeout: defaultTimeout,
		modules: &moduleCache{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.serverName == "" {
		c.serverName, _ = os.Hostname()
	}
	if c.store == nil {
		c.store = noopStoreInternal{}
	}
	c.httpClient = &http.Client{Timeout: c.timeout}

	return c
}

// ReloadModules replaces the configured include paths and drops the cached
// application-module prefix set. Call after a configuration reload.
func (c *Client) ReloadModules(include ...string) {
	c.modules.reload(include)
}

// CaptureMessage records a plain message event. extra is free-form context
// sanitized into the event's data.
func (c *Client) CaptureMessage(ctx context.Context, message string, extra map[string]any) *StoredEvent {
	ev := &Event{Message: message}
	if len(extra) > 0 {
		ev.Data = EventData(extra)
	}
	return c.process(ctx, ev, "message")
}

// CaptureRecord records an event from a structured log record. The
// checksum is computed from the record's raw message template before the
// interpolated message is substituted for display, so occurrences differing
// only in arguments group together. Records carrying an exception are
// routed through the exception path with the record's context preserved.
func (c *Client) CaptureRecord(ctx context.Context, record LogRecord) *StoredEvent {
	data := record.Data
	url := record.URL

	if req := record.Request; req != nil {
		if data == nil {
			data = make(map[string]any)
		}
		data["META"] = req.Headers
		data["GET"] = req.Query
		data["POST"] = req.Form
		data["COOKIES"] = req.Cookies
		if req.RawBody != "" {
			data["raw_post_data"] = req.RawBody
		}
		if url == "" {
			url = req.URL
		}
	}

	ev := &Event{
		Logger:  record.Logger,
		Level:   record.Level,
		URL:     url,
		View:    record.View,
		Message: record.FormattedMessage(),
	}
	if len(data) > 0 {
		ev.Data = EventData(data)
	}

	// Checksum from the unparsed template. A caller-supplied checksum is
	// authoritative.
	ev.Checksum = record.Checksum
	if ev.Checksum == "" {
		ev.Checksum = Checksum("", record.Message, "")
	}

	if record.Exception != nil {
		return c.captureException(ctx, record.Exception, ev)
	}
	return c.process(ctx, ev, "record")
}

// CaptureError records an event from a Go error, capturing the current
// goroutine's stack. A nil error records nothing.
func (c *Client) CaptureError(ctx context.Context, err error) *StoredEvent {
	if err == nil {
		return nil
	}
	return c.captureException(ctx, NewExceptionInfo(err, 1), &Event{})
}

// CaptureException records an event from a prepared exception capture.
// When info carries no frames the current goroutine's stack is used.
func (c *Client) CaptureException(ctx context.Context, info *ExceptionInfo) *StoredEvent {
	if info == nil {
		return nil
	}
	return c.captureException(ctx, info, &Event{})
}

// CapturePanic records a recovered panic value as a fatal event.
func (c *Client) CapturePanic(ctx context.Context, recovered any) *StoredEvent {
	if recovered == nil {
		return nil
	}

	var info *ExceptionInfo
	if err, ok := recovered.(error); ok {
		info = NewExceptionInfo(err, 1)
	} else {
		info = &ExceptionInfo{
			ClassName: "panic",
			Value:     formatRecovered(recovered),
			Frames:    CaptureFrames(1),
		}
		info.Traceback = FormatTraceback(info)
	}
	return c.captureException(ctx, info, &Event{Level: LevelFatal})
}

// captureException folds an exception capture into ev and processes it.
func (c *Client) captureException(ctx context.Context, info *ExceptionInfo, ev *Event) *StoredEvent {
	if len(info.Frames) == 0 {
		info.Frames = CaptureFrames(2)
	}
	if info.Traceback == "" {
		info.Traceback = FormatTraceback(info)
	}

	if ev.View == "" {
		ev.View = ResolveView(info.Frames, c.modules.prefixes(), c.excludePaths)
	}

	// Exception args are sanitized here and string-bounded a second time,
	// independent of the bound Sanitize applies internally.
	args := make([]any, len(info.Args))
	for i, a := range info.Args {
		v := Sanitize(a)
		if s, ok := v.(string); ok {
			v = truncateString(s)
		}
		args[i] = v
	}

	frames := make([]any, 0, len(info.Frames))
	for _, f := range info.Frames {
		frame := map[string]any{
			"module":   f.Module,
			"function": f.Function,
			"file":     f.File,
			"line":     f.Line,
		}
		if len(f.Locals) > 0 {
			frame["vars"] = Sanitize(f.Locals)
		}
		frames = append(frames, frame)
	}

	internal := map[string]any{
		"module": info.Module,
		"args":   args,
		"frames": frames,
	}

	// Template-rendering errors carry their own origin: the template load
	// name wins over the resolved view.
	var te TemplateError
	if info.Err != nil && errors.As(info.Err, &te) {
		start, end := te.TemplateSource()
		internal["template"] = map[string]any{
			"name":  te.TemplateName(),
			"start": start,
			"end":   end,
		}
		ev.View = te.TemplateName()
	}

	if ev.Data == nil {
		ev.Data = make(EventData)
	}
	ev.Data[internalKey] = internal

	if ev.Message == "" {
		ev.Message = truncateString(info.Value)
	}
	ev.ClassName = info.ClassName
	ev.Traceback = info.Traceback

	return c.process(ctx, ev, "exception")
}

// process fills defaults, applies throttling and filters, sanitizes the
// data payload and dispatches. A nil return means the event was suppressed
// or vetoed; reporting never fails back into the instrumented caller.
func (c *Client) process(ctx context.Context, ev *Event, source string) *StoredEvent {
	eventsCaptured.WithLabelValues(source).Inc()

	if ev.Level == 0 {
		ev.Level = LevelError
	}
	if ev.ServerName == "" {
		ev.ServerName = c.serverName
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Checksum == "" {
		ev.Checksum = Checksum(ev.ClassName, ev.Message, ev.Traceback)
	}

	if c.gate.ShouldSuppress(ev.ClassName, ev.Checksum) {
		eventsThrottled.Inc()
		return nil
	}

	if ev = applyFilters(c.filters, ev); ev == nil {
		eventsFiltered.Inc()
		return nil
	}

	if len(ev.Data) > 0 {
		sanitized := make(EventData, len(ev.Data))
		for k, v := range ev.Data {
			sanitized[k] = Sanitize(v)
		}
		ev.Data = sanitized
	}

	return c.dispatch(ctx, ev)
}

// moduleCache lazily resolves the set of module path prefixes considered
// application code: the main module path from build info plus configured
// include paths. Read-mostly; reload invalidates it after a configuration
// change.
type moduleCache struct {
	mu       sync.Mutex
	include  []string
	resolved []string
	built    bool
}

func (m *moduleCache) prefixes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.built {
		var prefixes []string
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
			prefixes = append(prefixes, info.Main.Path)
		}
		m.resolved = append(prefixes, m.include...)
		m.built = true
	}
	return m.resolved
}

func (m *moduleCache) reload(include []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.include = include
	m.resolved = nil
	m.built = false
}
