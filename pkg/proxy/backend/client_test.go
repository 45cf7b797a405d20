package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/proxy/types"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := config.Default().Backend
	cfg.BaseURL = baseURL
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:11434", "://bad"} {
		cfg := config.Default().Backend
		cfg.BaseURL = raw
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%q) succeeded, want error", raw)
		}
	}
}

func TestClient_URL(t *testing.T) {
	c := newTestClient(t, "http://localhost:11434/")

	if got := c.URL(EndpointChat); got != "http://localhost:11434/api/chat" {
		t.Errorf("chat URL = %q", got)
	}
	if got := c.URL(EndpointGenerate); got != "http://localhost:11434/api/generate" {
		t.Errorf("generate URL = %q", got)
	}
}

func TestClient_Do(t *testing.T) {
	var gotBody string
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	body := []byte(`{"model":"m","messages":[],"extra":1}`)

	resp, err := c.Do(context.Background(), EndpointChat, body)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if gotBody != string(body) {
		t.Errorf("backend received %q, want body forwarded unchanged", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"done":true}` {
		t.Errorf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if resp.ContentType != "application/json; charset=utf-8" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Do(context.Background(), EndpointChat, []byte(`{}`))
	var backendErr *types.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error = %v, want BackendError", err)
	}
	if backendErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", backendErr.StatusCode)
	}
	if backendErr.Body != "{\"error\":\"model 'nope' not found\"}\n" {
		t.Errorf("Body = %q", backendErr.Body)
	}

	_, err = c.Stream(context.Background(), EndpointGenerate, []byte(`{}`))
	if !errors.As(err, &backendErr) || backendErr.HTTPStatus() != http.StatusNotFound {
		t.Errorf("Stream() error = %v, want 404 BackendError", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), EndpointChat, []byte(`{}`))
		var backendErr *types.BackendError
		if !errors.As(err, &backendErr) || backendErr.HTTPStatus() != http.StatusBadGateway {
			t.Fatalf("error = %v, want unreachable BackendError", err)
		}
	}

	h := c.Health()
	if h.Healthy || h.ConsecutiveFailures != 3 {
		t.Errorf("health = %+v, want unhealthy after 3 failures", h)
	}
}

func TestClient_StreamCancel(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	resp, err := c.Stream(ctx, EndpointChat, []byte(`{}`))
	if err != nil {
		t.Fatalf("Stream() failed: %v", err)
	}
	defer resp.Body.Close()
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(resp.Body)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("read succeeded after cancel, want error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream read not aborted by cancel")
	}

	if !c.Health().Healthy {
		t.Error("cancelled stream marked backend unhealthy")
	}
}

func TestClient_Ping(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" || r.Method != http.MethodGet {
			t.Errorf("unexpected probe %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}

	status.Store(http.StatusServiceUnavailable)
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() succeeded on 503, want error")
	}
}
