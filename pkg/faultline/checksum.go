// checksum.go produces the stable fingerprint that groups occurrences of
// the same error.

package faultline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Checksum fingerprints an error occurrence so that repeated instances of
// the same error collapse to one value while distinct errors diverge. The
// input is the class name when present, otherwise the first line of the
// message, plus the traceback text when present.
//
// Callers on the log-record path must pass the raw, unformatted message
// template: the checksum is computed before interpolation so occurrences
// differing only in formatted arguments group together.
func Checksum(className, message, traceback string) string {
	parts := make([]string, 0, 2)
	if className != "" {
		parts = append(parts, className)
	} else {
		parts = append(parts, firstLine(message))
	}
	if traceback != "" {
		parts = append(parts, traceback)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Hex-encoded first 16 bytes (32 chars): fixed-width identity, not a
	// security boundary.
	return hex.EncodeToString(sum[:16])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
