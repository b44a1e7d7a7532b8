package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestHistory_Append(t *testing.T) {
	base := NewHistory("a")
	next := base.Append("b")

	if base.Len() != 1 {
		t.Fatalf("receiver mutated: got %d entries", base.Len())
	}
	if !reflect.DeepEqual(next.Entries(), []string{"a", "b"}) {
		t.Fatalf("unexpected entries %v", next.Entries())
	}

	// Two appends from the same base must not share storage.
	left := next.Append("left")
	right := next.Append("right")
	if left.Entries()[2] != "left" || right.Entries()[2] != "right" {
		t.Fatalf("appends share backing array: %v %v", left.Entries(), right.Entries())
	}
}

func TestHistory_EntriesIsCopy(t *testing.T) {
	h := NewHistory("x")
	entries := h.Entries()
	entries[0] = "mutated"
	if h.Entries()[0] != "x" {
		t.Fatalf("Entries exposed internal slice")
	}
}

func TestHistory_JSON(t *testing.T) {
	tests := []struct {
		name string
		h    History
		want string
	}{
		{name: "empty history is an empty array", h: History{}, want: `[]`},
		{name: "entries in order", h: NewHistory("s(\"bd\")", "n(1)"), want: `["s(\"bd\")","n(1)"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.h)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Fatalf("got %s, want %s", b, tt.want)
			}

			var back History
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.Len() != tt.h.Len() {
				t.Fatalf("round trip lost entries: %d vs %d", back.Len(), tt.h.Len())
			}
		})
	}
}
