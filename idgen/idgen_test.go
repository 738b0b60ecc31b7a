package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestHex_Length(t *testing.T) {
	for _, length := range []int{8, 12, 16} {
		id := Hex(length)()
		if len(id) != length {
			t.Fatalf("Hex(%d): got length %d", length, len(id))
		}
		if strings.Trim(id, "0123456789abcdef") != "" {
			t.Fatalf("Hex(%d): non-hex character in %q", length, id)
		}
	}
	if got := len(Hex(7)()); got != 8 {
		t.Errorf("odd length should round up: got %d", got)
	}
}

func TestHex_Unique(t *testing.T) {
	gen := Hex(16)
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id after %d iterations: %s", i, id)
		}
		seen[id] = true
	}
}

func TestUUIDv7(t *testing.T) {
	id := UUIDv7()()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", id, err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("trc_", Hex(8))()
	if !strings.HasPrefix(id, "trc_") || len(id) != 12 {
		t.Errorf("got %q", id)
	}
}

func TestByName(t *testing.T) {
	for name, wantLen := range map[string]int{"": 8, "hex": 8, "uuid": 36} {
		gen, err := ByName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if got := len(gen()); got != wantLen {
			t.Errorf("%q: length %d, want %d", name, got, wantLen)
		}
	}
	if _, err := ByName("snowflake"); err == nil {
		t.Error("expected error for unknown format")
	}
}
