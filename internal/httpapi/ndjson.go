package httpapi

import "net/http"

// ndjsonWriter commits the 200 NDJSON response on the first write, so errors
// raised before any output can still be sent as a JSON error.
type ndjsonWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func (n *ndjsonWriter) Write(p []byte) (int, error) {
	if !n.wrote {
		h := n.w.Header()
		h.Set("Content-Type", "application/x-ndjson")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Accel-Buffering", "no")
		n.w.WriteHeader(http.StatusOK)
		n.wrote = true
	}
	return n.w.Write(p)
}

func (n *ndjsonWriter) flush() {
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
}
