package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"harvest-hq/gateway/pkg/proxy"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxy.SetStreamHeaders(w)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("{\"done\":true}\n"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	w := httptest.NewRecorder()
	RequestIDMiddleware(LoggingMiddleware(handler)).ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Status code = %v, want %v", w.Code, http.StatusTeapot)
	}

	var line struct {
		Msg       string `json:"msg"`
		Level     string `json:"level"`
		Status    int    `json:"status"`
		Bytes     int64  `json:"bytes"`
		Stream    bool   `json:"stream"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line.Msg != "request completed" || line.Level != "WARN" {
		t.Errorf("got msg=%q level=%q", line.Msg, line.Level)
	}
	if line.Status != http.StatusTeapot || line.Bytes != 14 || !line.Stream {
		t.Errorf("got status=%d bytes=%d stream=%v", line.Status, line.Bytes, line.Stream)
	}
	if line.RequestID == "" || line.RequestID != w.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %q, header = %q", line.RequestID, w.Header().Get(RequestIDHeader))
	}
}

func TestTrackingWriter_Streamed(t *testing.T) {
	tests := []struct {
		name       string
		setHeaders func(w http.ResponseWriter)
		wantStream bool
	}{
		{
			name:       "relay stream headers",
			setHeaders: proxy.SetStreamHeaders,
			wantStream: true,
		},
		{
			name:       "stream type with parameters",
			setHeaders: func(w http.ResponseWriter) { w.Header().Set("Content-Type", "text/event-stream; charset=utf-8") },
			wantStream: true,
		},
		{
			name:       "json body",
			setHeaders: func(w http.ResponseWriter) { w.Header().Set("Content-Type", "application/json") },
		},
		{
			name:       "no content type",
			setHeaders: func(http.ResponseWriter) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := wrapWriter(httptest.NewRecorder())
			tt.setHeaders(tw)
			if got := tw.streamed(); got != tt.wantStream {
				t.Errorf("streamed() = %v, want %v (Content-Type %q)", got, tt.wantStream, tw.Header().Get("Content-Type"))
			}
		})
	}
}

func TestTrackingWriter_FlushAndUnwrap(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("line\n"))
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush() through wrapper failed: %v", err)
		}
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(RecoveryMiddleware(handler)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	if !w.Flushed {
		t.Error("expected the recorder to be flushed")
	}
}

func TestTrackingWriter_Shared(t *testing.T) {
	tw := wrapWriter(httptest.NewRecorder())
	if wrapWriter(tw) != tw {
		t.Error("wrapping twice should reuse the existing wrapper")
	}

	tw.WriteHeader(http.StatusAccepted)
	tw.WriteHeader(http.StatusInternalServerError)
	if tw.status != http.StatusAccepted {
		t.Errorf("status = %d, want first status %d", tw.status, http.StatusAccepted)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("sets deadline", func(t *testing.T) {
		var err error
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			err = r.Context().Err()
		})

		TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/api/history", nil))

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("ctx.Err() = %v, want deadline exceeded", err)
		}
	})

	t.Run("zero disables", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				t.Error("unexpected deadline")
			}
		})

		TimeoutMiddleware(0)(handler).ServeHTTP(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/api/history", nil))
	})
}

type recordedRequest struct {
	route  string
	method string
	status int
}

type fakeHTTPMetrics struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(route, method string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedRequest{route: route, method: method, status: status})
}

func TestMetricsMiddleware(t *testing.T) {
	m := &fakeHTTPMetrics{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	MetricsMiddleware(m, "/api/chat")(handler).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/chat?x=1", nil))

	if len(m.seen) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(m.seen))
	}
	want := recordedRequest{route: "/api/chat", method: http.MethodPost, status: http.StatusBadRequest}
	if m.seen[0] != want {
		t.Errorf("recorded %+v, want %+v", m.seen[0], want)
	}
}

func TestMetricsMiddleware_NilMetrics(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	MetricsMiddleware(nil, "/api/chat")(handler).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	if !called {
		t.Error("handler not called")
	}
}
