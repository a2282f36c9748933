// sanitize.go converts arbitrary runtime values into a bounded,
// serializable form before they are attached to an event.

package faultline

import (
	"fmt"
	"reflect"
)

const (
	// maxStringLen bounds every string in sanitized output. Also enforced
	// a second time on exception args during event assembly.
	maxStringLen = 200

	// maxSeqLen bounds sequence output; the remainder is replaced with a
	// truncation marker.
	maxSeqLen = 50

	// maxDepth bounds recursion independently of cycle detection.
	maxDepth = 12

	truncationMarker = "..."
	cycleMarker      = "<...>"
	failureMarker    = "<unrepresentable>"
)

// Sanitize recursively converts v into a tree of strings, numbers,
// booleans, nils, []any and map[string]any. Cycles are replaced with a
// marker, sequences and strings are capped, opaque values become bounded
// display strings, and a conversion failure for a single element degrades
// to a placeholder instead of failing the whole structure.
func Sanitize(v any) any {
	return sanitize(v, make(map[uintptr]struct{}), 0)
}

func sanitize(v any, seen map[uintptr]struct{}, depth int) (out any) {
	defer func() {
		if recover() != nil {
			out = failureMarker
		}
	}()

	if v == nil {
		return nil
	}
	if depth >= maxDepth {
		return cycleMarker
	}

	switch val := v.(type) {
	case string:
		return truncateString(val)
	case bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case error:
		return truncateString(val.Error())
	case fmt.Stringer:
		return truncateString(val.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			ptr := rv.Pointer()
			if _, ok := seen[ptr]; ok {
				return cycleMarker
			}
			seen[ptr] = struct{}{}
		}
		return sanitize(rv.Elem().Interface(), seen, depth+1)

	case reflect.Map:
		ptr := rv.Pointer()
		if _, ok := seen[ptr]; ok {
			return cycleMarker
		}
		seen[ptr] = struct{}{}

		result := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			result[mapKeyString(iter.Key())] = sanitize(valueInterface(iter.Value()), seen, depth+1)
		}
		return result

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, ok := seen[ptr]; ok {
			return cycleMarker
		}
		seen[ptr] = struct{}{}
		return sanitizeSeq(rv, seen, depth)

	case reflect.Array:
		return sanitizeSeq(rv, seen, depth)

	case reflect.Struct:
		t := rv.Type()
		result := make(map[string]any)
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			result[field.Name] = sanitize(valueInterface(rv.Field(i)), seen, depth+1)
		}
		return result

	default:
		// Channels, funcs, complex values and anything else opaque become
		// their bounded display string.
		return truncateString(fmt.Sprint(v))
	}
}

// sanitizeSeq converts a slice or array, capping its length.
func sanitizeSeq(rv reflect.Value, seen map[uintptr]struct{}, depth int) []any {
	n := rv.Len()
	capped := n
	if capped > maxSeqLen {
		capped = maxSeqLen
	}

	result := make([]any, 0, capped+1)
	for i := 0; i < capped; i++ {
		result = append(result, sanitize(valueInterface(rv.Index(i)), seen, depth+1))
	}
	if n > capped {
		result = append(result, truncationMarker)
	}
	return result
}

// mapKeyString stringifies a map key, degrading to a placeholder when the
// key cannot be represented.
func mapKeyString(k reflect.Value) (out string) {
	defer func() {
		if recover() != nil {
			out = failureMarker
		}
	}()
	if k.Kind() == reflect.String {
		return truncateString(k.String())
	}
	return truncateString(fmt.Sprint(k.Interface()))
}

// valueInterface extracts the value's interface, degrading to a placeholder
// for values reflection cannot surface.
func valueInterface(v reflect.Value) (out any) {
	defer func() {
		if recover() != nil {
			out = failureMarker
		}
	}()
	if !v.CanInterface() {
		return failureMarker
	}
	return v.Interface()
}

// truncateString caps s with an ellipsis marker.
func truncateString(s string) string {
	if len(s) > maxStringLen {
		return s[:maxStringLen] + truncationMarker
	}
	return s
}
