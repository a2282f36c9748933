package faultline

import "testing"

func TestChecksum_Stability(t *testing.T) {
	a := Checksum("TimeoutError", "connection timed out", "trace")
	b := Checksum("TimeoutError", "connection timed out", "trace")

	if a != b {
		t.Errorf("same inputs produced different checksums: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("checksum length = %d, want 32", len(a))
	}
}

func TestChecksum_ClassNameWinsOverMessage(t *testing.T) {
	// With a class name present the message does not participate, so
	// occurrences with different display messages still group together.
	a := Checksum("TimeoutError", "timed out after 5s", "trace")
	b := Checksum("TimeoutError", "timed out after 30s", "trace")

	if a != b {
		t.Errorf("message should not split groups when class name present: %q vs %q", a, b)
	}
}

func TestChecksum_DifferentClassName(t *testing.T) {
	a := Checksum("TimeoutError", "boom", "trace")
	b := Checksum("ValueError", "boom", "trace")

	if a == b {
		t.Error("different class names should produce different checksums")
	}
}

func TestChecksum_FirstLineOfMessage(t *testing.T) {
	a := Checksum("", "disk full\nextra detail", "")
	b := Checksum("", "disk full\nother detail", "")

	if a != b {
		t.Errorf("only the first message line should participate: %q vs %q", a, b)
	}
	if a == Checksum("", "disk empty", "") {
		t.Error("different first lines should produce different checksums")
	}
}

func TestChecksum_TracebackParticipates(t *testing.T) {
	a := Checksum("TimeoutError", "boom", "trace one")
	b := Checksum("TimeoutError", "boom", "trace two")

	if a == b {
		t.Error("different tracebacks should produce different checksums")
	}
}
