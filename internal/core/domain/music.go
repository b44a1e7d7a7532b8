package domain

import "encoding/json"

// MusicResult is either the upstream body verbatim or an error record.
type MusicResult struct {
	Body  string
	Error string
}

// Failed reports whether the forwarder could not obtain a body.
func (m MusicResult) Failed() bool {
	return m.Error != ""
}

// String renders the result the way the music tool returns it.
func (m MusicResult) String() string {
	if !m.Failed() {
		return m.Body
	}
	b, err := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: m.Error})
	if err != nil {
		return `{"error":"music: encode error"}`
	}
	return string(b)
}
