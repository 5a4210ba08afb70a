package idgen

import (
	"strings"
	"testing"
)

func TestNanoIDLength(t *testing.T) {
	gen := NanoID(8)
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 8 {
			t.Fatalf("length: got %d, want 8", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
				t.Fatalf("unexpected char %q in %q", r, id)
			}
		}
	}
}

func TestNanoIDUniqueness(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()
	id := gen()
	if _, err := Parse(id); err != nil {
		t.Fatalf("generated UUID does not parse: %v", err)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("doc_", NanoID(6))
	id := gen()
	if !strings.HasPrefix(id, "doc_") {
		t.Errorf("prefix: got %q, want doc_ prefix", id)
	}
	if len(id) != len("doc_")+6 {
		t.Errorf("length: got %d, want %d", len(id), len("doc_")+6)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}
