package middleware

import (
	"mime"
	"net/http"

	"harvest-hq/gateway/pkg/proxy/types"
)

// trackingWriter records what a handler sent: the status line, how many
// body bytes and whether anything reached the client yet. It is shared by
// every middleware in the chain so each sees the same view.
type trackingWriter struct {
	http.ResponseWriter
	status    int
	size      int64
	committed bool
}

// wrapWriter returns w as a trackingWriter, reusing an existing one.
func wrapWriter(w http.ResponseWriter) *trackingWriter {
	if tw, ok := w.(*trackingWriter); ok {
		return tw
	}
	return &trackingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (tw *trackingWriter) WriteHeader(code int) {
	if tw.committed {
		return
	}
	tw.status = code
	tw.committed = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.WriteHeader(http.StatusOK)
	n, err := tw.ResponseWriter.Write(b)
	tw.size += int64(n)
	return n, err
}

// Flush commits the status line and pushes buffered NDJSON to the client.
func (tw *trackingWriter) Flush() {
	tw.WriteHeader(http.StatusOK)
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the connection.
func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

// streamed reports whether the response was a relayed chat stream.
func (tw *trackingWriter) streamed() bool {
	mediaType, _, err := mime.ParseMediaType(tw.Header().Get("Content-Type"))
	return err == nil && mediaType == types.StreamContentType
}
