// event.go defines the canonical error event data structure for faultline.

package faultline

import "time"

// Level is the ordinal severity of an event. The ordinals match the
// conventional logging levels so records from any logging frontend map
// through unchanged.
type Level int

const (
	// LevelDebug is diagnostic output that would normally not be reported.
	LevelDebug Level = 10

	// LevelInfo is informational output.
	LevelInfo Level = 20

	// LevelWarning indicates a non-fatal issue that may need attention.
	LevelWarning Level = 30

	// LevelError indicates a recoverable error that caused an operation to
	// fail. Events default to this level.
	LevelError Level = 40

	// LevelFatal indicates an unrecoverable error such as a panic.
	LevelFatal Level = 50
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch {
	case l >= LevelFatal:
		return "fatal"
	case l >= LevelError:
		return "error"
	case l >= LevelWarning:
		return "warning"
	case l >= LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// internalKey is the EventData key under which exception internals
// (exception module, sanitized args, frame list) are stored.
const internalKey = "__faultline__"

// EventData is the sanitized contextual data attached to an event:
// well-known framework keys (META, GET, POST, COOKIES), caller-supplied
// extras, and the internal submap under internalKey. Owned exclusively by
// one event until dispatch.
type EventData map[string]any

// Frame is one entry in a captured call stack. Frame sequences are ordered
// oldest call first.
type Frame struct {
	// Module is the package path owning the function.
	Module string `json:"module"`

	// Function is the function name within the module, including any
	// receiver part.
	Function string `json:"function"`

	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	// Locals is a snapshot of local or contextual variables. Sanitized
	// lazily, when the frame list is folded into EventData.
	Locals map[string]any `json:"locals,omitempty"`
}

// DottedName returns the module-qualified function identifier, or "" when
// the frame is missing either part.
func (f Frame) DottedName() string {
	if f.Module == "" || f.Function == "" {
		return ""
	}
	return f.Module + "." + f.Function
}

// Event is the canonical error occurrence. A Client builds it, the filter
// chain may mutate or veto it, and dispatch consumes it exactly once. The
// receiving store owns persistence.
type Event struct {
	// EventID is a unique identifier for this occurrence (UUID).
	EventID string `json:"event_id"`

	// Timestamp is when the occurrence was captured.
	Timestamp time.Time `json:"timestamp"`

	// Message is the human-readable display message. Always present by the
	// time the event reaches dispatch; derived from the exception value
	// when not set explicitly.
	Message string `json:"message"`

	// Level is the ordinal severity. Defaults to LevelError.
	Level Level `json:"level"`

	// Logger is the name of the logger that produced the record, if any.
	Logger string `json:"logger,omitempty"`

	// ServerName identifies the reporting host.
	ServerName string `json:"server_name,omitempty"`

	// ClassName is the exception type name, when the event came from an
	// exception.
	ClassName string `json:"class_name,omitempty"`

	// Checksum is the fixed-width fingerprint grouping equivalent
	// occurrences. Deterministic for semantically-equivalent occurrences;
	// a checksum set before processing is authoritative.
	Checksum string `json:"checksum"`

	// View is the best-guess dotted identifier of the application code
	// location responsible for the event.
	View string `json:"view,omitempty"`

	// Traceback is the fully formatted exception text.
	Traceback string `json:"traceback,omitempty"`

	// URL is the request URL associated with the event, if any.
	URL string `json:"url,omitempty"`

	// Data is the sanitized contextual payload.
	Data EventData `json:"data,omitempty"`
}
