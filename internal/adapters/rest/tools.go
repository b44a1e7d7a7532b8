package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// CallTool handles POST /tools/{name}. The body is passed to the tool as its
// arguments and the tool's string result is written back unchanged.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	if h.tools == nil {
		writeError(w, http.StatusNotImplemented, "tools not configured")
		return
	}

	name := r.PathValue("name")
	tool, ok := h.tools.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool "+name+"; available: "+strings.Join(h.tools.Names(), ", "))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out := tool.Call(r.Context(), string(body))

	if json.Valid([]byte(out)) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}
