package domain

import "encoding/json"

// History is the ordered record of tool responses captured from earlier
// rounds of a session. It is a value: Append returns a new History and never
// changes the receiver.
type History struct {
	entries []string
}

// NewHistory copies entries into a History.
func NewHistory(entries ...string) History {
	if len(entries) == 0 {
		return History{}
	}
	cp := make([]string, len(entries))
	copy(cp, entries)
	return History{entries: cp}
}

// Append returns a History with entry added at the end.
func (h History) Append(entry string) History {
	next := make([]string, len(h.entries), len(h.entries)+1)
	copy(next, h.entries)
	return History{entries: append(next, entry)}
}

// Len returns the number of entries.
func (h History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the entries, oldest first.
func (h History) Entries() []string {
	cp := make([]string, len(h.entries))
	copy(cp, h.entries)
	return cp
}

// MarshalJSON encodes the history as a JSON array of strings.
func (h History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Entries())
}

// UnmarshalJSON decodes a JSON array of strings.
func (h *History) UnmarshalJSON(data []byte) error {
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*h = NewHistory(entries...)
	return nil
}
