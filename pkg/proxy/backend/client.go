package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/proxy/middleware"
	"harvest-hq/gateway/pkg/proxy/types"
)

// Endpoint names a backend operation.
type Endpoint string

// Supported endpoints.
const (
	EndpointChat     Endpoint = "chat"
	EndpointGenerate Endpoint = "generate"
)

// maxErrorBody caps how much of a failed response is read into an error.
const maxErrorBody = 64 * 1024

// Response is a fully read backend answer.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Health summarizes recent backend reachability.
type Health struct {
	Healthy             bool
	LastCheck           time.Time
	LastError           error
	ConsecutiveFailures int
	TotalRequests       int64
	FailedRequests      int64
}

// Client talks to the backend over a pooled HTTP transport.
type Client struct {
	config  config.BackendConfig
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger

	healthMu sync.RWMutex
	health   Health
}

// New creates a client from cfg.
func New(cfg config.BackendConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", cfg.BaseURL)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &Client{
		config:  cfg,
		baseURL: base,
		client:  &http.Client{Transport: transport},
		logger:  slog.Default().With("component", "proxy.backend"),
		health:  Health{Healthy: true, LastCheck: time.Now()},
	}, nil
}

// URL returns the absolute URL for endpoint.
func (c *Client) URL(endpoint Endpoint) string {
	path := c.config.ChatPath
	if endpoint == EndpointGenerate {
		path = c.config.GeneratePath
	}
	return c.baseURL.String() + path
}

// Do posts body and reads the whole answer. Non-2xx answers are returned as
// a *types.BackendError.
func (c *Client) Do(ctx context.Context, endpoint Endpoint, body []byte) (*Response, error) {
	resp, err := c.post(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.updateHealth(false, err)
		return nil, &types.BackendError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// Stream posts body and returns the open response for the caller to read and
// close. Non-2xx answers are read, closed and returned as *types.BackendError.
func (c *Client) Stream(ctx context.Context, endpoint Endpoint, body []byte) (*http.Response, error) {
	return c.post(ctx, endpoint, body)
}

func (c *Client) post(ctx context.Context, endpoint Endpoint, body []byte) (*http.Response, error) {
	target := c.URL(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewInternalError("failed to create backend request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := middleware.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	c.logger.Debug("sending request to backend", "url", target, "bytes", len(body))

	resp, err := c.client.Do(req)
	if err != nil {
		// A cancelled caller is not a backend failure.
		if ctx.Err() == nil {
			c.updateHealth(false, err)
		}
		return nil, &types.BackendError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		c.recordRequest(false)
		c.logger.Warn("backend returned error status",
			"url", target,
			"status", resp.StatusCode,
		)
		return nil, &types.BackendError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	c.updateHealth(true, nil)
	return resp, nil
}

// Ping probes the health path. Any 2xx answer counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+c.config.HealthPath, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.updateHealth(false, err)
		return &types.BackendError{Cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &types.BackendError{StatusCode: resp.StatusCode, Body: resp.Status}
		c.updateHealth(false, err)
		return err
	}

	c.updateHealth(true, nil)
	return nil
}

// Health returns a snapshot of recent reachability.
func (c *Client) Health() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func (c *Client) updateHealth(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastCheck = time.Now()
	c.health.TotalRequests++

	if success {
		c.health.Healthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err

	// Unhealthy after 3 consecutive transport failures.
	if c.health.ConsecutiveFailures >= 3 && c.health.Healthy {
		c.health.Healthy = false
		c.logger.Warn("backend marked unhealthy",
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// recordRequest counts a request that reached the backend.
func (c *Client) recordRequest(success bool) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.TotalRequests++
	if !success {
		c.health.FailedRequests++
	}
}
