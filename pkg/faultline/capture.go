// capture.go defines the tagged input variants consumed by a Client and the
// helpers that build them from Go errors and live goroutine stacks.

package faultline

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// maxStackDepth bounds how many frames a stack capture records.
const maxStackDepth = 64

// maxErrorArgs bounds how many unwrap-chain messages are kept as args.
const maxErrorArgs = 8

// ExceptionInfo describes one captured exception occurrence: the error's
// type identity, its display value, and the stack at the point of capture.
type ExceptionInfo struct {
	// ClassName is the error's type name (without package qualifier).
	ClassName string

	// Module is the package path owning the error type, when known.
	Module string

	// Value is the error's display string.
	Value string

	// Args holds the messages along the unwrap chain, outermost first.
	// Sanitized and string-truncated again during event assembly.
	Args []any

	// Frames is the captured stack, oldest call first.
	Frames []Frame

	// Traceback is the fully formatted exception text. Rendered from
	// Frames when empty.
	Traceback string

	// Err is the underlying error, kept so assembly can detect typed
	// errors such as TemplateError. Never serialized.
	Err error
}

// LogRecord is the structured shape of a log call handed to CaptureRecord.
type LogRecord struct {
	// Logger is the name of the logger that produced the record.
	Logger string

	// Level is the record's ordinal severity.
	Level Level

	// Message is the raw, unformatted template. Checksums are computed
	// from this value so occurrences differing only in interpolated
	// arguments group together.
	Message string

	// Args are the interpolation arguments applied for display.
	Args []any

	// Checksum, when set, is used verbatim instead of being computed.
	Checksum string

	// Exception routes the record through the exception path when set.
	Exception *ExceptionInfo

	URL  string
	View string

	// Data is free-form contextual data, sanitized before dispatch.
	Data map[string]any

	// Request carries framework request metadata folded into EventData.
	Request *RequestContext
}

// FormattedMessage returns the display message with arguments applied.
func (r LogRecord) FormattedMessage() string {
	if len(r.Args) == 0 {
		return r.Message
	}
	return fmt.Sprintf(r.Message, r.Args...)
}

// RequestContext is framework-agnostic request metadata. The caller's web
// framework integration fills it in; faultline only folds it into the
// event's data.
type RequestContext struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Form    map[string]string
	Cookies map[string]string
	RawBody string
}

// TemplateError is implemented by template-rendering errors that know
// their originating template. Events for such errors use the template load
// name as the view and record the source range under the internal data key.
type TemplateError interface {
	error

	// TemplateName is the load name of the failing template.
	TemplateName() string

	// TemplateSource returns the start and end offsets of the failing
	// region within the template source.
	TemplateSource() (start, end int)
}

// NewExceptionInfo builds an ExceptionInfo from err, capturing the current
// goroutine's stack. skip counts additional capture-machinery frames to
// drop, with 0 meaning the caller of NewExceptionInfo appears innermost.
func NewExceptionInfo(err error, skip int) *ExceptionInfo {
	if err == nil {
		return nil
	}
	className, module := errorType(err)
	info := &ExceptionInfo{
		ClassName: className,
		Module:    module,
		Value:     err.Error(),
		Args:      errorArgs(err),
		Frames:    CaptureFrames(skip + 1),
		Err:       err,
	}
	info.Traceback = FormatTraceback(info)
	return info
}

// CaptureFrames captures the current goroutine's stack, oldest call first.
// skip counts frames to drop beyond the capture machinery itself, with 0
// meaning the caller of CaptureFrames appears innermost.
func CaptureFrames(skip int) []Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	it := runtime.CallersFrames(pcs[:n])
	var frames []Frame
	for {
		fr, more := it.Next()
		if fr.Function != "" {
			module, function := splitFunction(fr.Function)
			frames = append(frames, Frame{
				Module:   module,
				Function: function,
				File:     fr.File,
				Line:     fr.Line,
			})
		}
		if !more {
			break
		}
	}

	// runtime reports innermost first; the pipeline wants oldest first.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}

// FormatTraceback renders an exception as readable text: a header line
// followed by one location per frame, oldest call first.
func FormatTraceback(info *ExceptionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", info.ClassName, info.Value)
	for _, f := range info.Frames {
		name := f.DottedName()
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", name, f.File, f.Line)
	}
	return b.String()
}

// splitFunction splits a runtime function name such as
// "github.com/acme/app/web.(*Handler).Serve" into the package path and the
// function part.
func splitFunction(full string) (module, function string) {
	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", full
	}
	dot += slash + 1
	return full[:dot], full[dot+1:]
}

// errorType resolves the type name and owning package path of err.
func errorType(err error) (name, module string) {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "error", ""
	}
	if t.Name() != "" {
		return t.Name(), t.PkgPath()
	}
	return t.String(), ""
}

// errorArgs collects the messages along the unwrap chain, outermost first.
func errorArgs(err error) []any {
	var args []any
	for e := err; e != nil; e = errors.Unwrap(e) {
		args = append(args, e.Error())
		if len(args) >= maxErrorArgs {
			break
		}
	}
	return args
}
