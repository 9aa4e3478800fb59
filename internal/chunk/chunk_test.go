package chunk

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := NewID("specs/payments.yaml", SectionEndpoint, 3)
		b := NewID("specs/payments.yaml", SectionEndpoint, 3)
		if a != b {
			t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
		}
	})

	t.Run("distinct per ordinal", func(t *testing.T) {
		a := NewID("specs/payments.yaml", SectionEndpoint, 0)
		b := NewID("specs/payments.yaml", SectionEndpoint, 1)
		if a == b {
			t.Errorf("different ordinals produced the same ID: %s", a)
		}
	})

	t.Run("distinct per section", func(t *testing.T) {
		a := NewID("specs/payments.yaml", SectionEndpoint, 0)
		b := NewID("specs/payments.yaml", SectionSchema, 0)
		if a == b {
			t.Errorf("different sections produced the same ID: %s", a)
		}
	})

	t.Run("prefix and length", func(t *testing.T) {
		id := NewID("x", "y", 0)
		if !strings.HasPrefix(id, "chunk_") {
			t.Errorf("ID %q missing chunk_ prefix", id)
		}
		if len(id) != len("chunk_")+32 {
			t.Errorf("ID %q has unexpected length %d", id, len(id))
		}
	})
}

func TestCounter(t *testing.T) {
	ids := newCounter()
	if got := ids.next("a"); got != 0 {
		t.Errorf("first ordinal = %d, want 0", got)
	}
	if got := ids.next("a"); got != 1 {
		t.Errorf("second ordinal = %d, want 1", got)
	}
	if got := ids.next("b"); got != 0 {
		t.Errorf("new section ordinal = %d, want 0", got)
	}
}
