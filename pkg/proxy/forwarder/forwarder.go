package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/proxy"
	"harvest-hq/gateway/pkg/proxy/backend"
	"harvest-hq/gateway/pkg/proxy/middleware"
	"harvest-hq/gateway/pkg/proxy/relay"
	"harvest-hq/gateway/pkg/proxy/types"
)

// Stream outcomes reported to Metrics.
const (
	OutcomeCompleted  = "completed"
	OutcomeIncomplete = "incomplete"
	OutcomeClientGone = "client_gone"
	OutcomeError      = "error"
)

// Backend is the upstream chat service.
type Backend interface {
	Do(ctx context.Context, endpoint backend.Endpoint, body []byte) (*backend.Response, error)
	Stream(ctx context.Context, endpoint backend.Endpoint, body []byte) (*http.Response, error)
}

// Recorder persists completed turns.
type Recorder interface {
	Submit(turn history.Turn)
	Record(ctx context.Context, turn history.Turn) error
}

// Metrics receives per-turn observations. A nil Metrics disables reporting.
type Metrics interface {
	RecordBackendRequest(endpoint string, status int, duration time.Duration)
	RecordStream(endpoint, outcome string, chunks, decodeErrors int)
}

// Config holds forwarding options.
type Config struct {
	// TerminalReasons lists done_reason values that complete a stream.
	TerminalReasons []string

	// BestEffortSync logs, rather than returns, storage failures on the
	// non-streaming path.
	BestEffortSync bool
}

// Forwarder forwards chat and generate requests.
type Forwarder struct {
	backend  Backend
	recorder Recorder
	metrics  Metrics
	config   Config
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates a Forwarder.
func New(b Backend, rec Recorder, metrics Metrics, cfg Config) *Forwarder {
	return &Forwarder{
		backend:  b,
		recorder: rec,
		metrics:  metrics,
		config:   cfg,
		tracer:   otel.Tracer("harvest-hq/gateway/forwarder"),
		logger:   slog.Default().With("component", "proxy.forwarder"),
	}
}

// Forward handles one request. Errors returned before anything was written
// to w should be reported to the client with proxy.HandleError. Once a
// stream has started, failures are returned wrapped so that ResponseStarted
// reports true; the client connection is then already committed.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, endpoint backend.Endpoint, req *types.ChatRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if len(req.Raw) == 0 {
		raw, err := json.Marshal(req)
		if err != nil {
			return types.NewInternalError("failed to encode request", err)
		}
		req.Raw = raw
	}

	ctx, span := f.tracer.Start(ctx, "forward "+string(endpoint),
		trace.WithAttributes(
			attribute.String("harvest.endpoint", string(endpoint)),
			attribute.String("harvest.model", req.Model),
			attribute.Int("harvest.messages", len(req.Messages)),
			attribute.Bool("harvest.stream", req.IsStreaming()),
		),
	)
	defer span.End()

	var err error
	if req.IsStreaming() {
		err = f.forwardStream(ctx, w, endpoint, req)
	} else {
		err = f.forwardOnce(ctx, w, endpoint, req)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (f *Forwarder) forwardStream(ctx context.Context, w http.ResponseWriter, endpoint backend.Endpoint, req *types.ChatRequest) error {
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	resp, err := f.backend.Stream(ctx, endpoint, req.Raw)
	f.recordBackend(endpoint, resp, err, start)
	if err != nil {
		f.logger.ErrorContext(ctx, "backend stream request failed",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		return err
	}
	defer resp.Body.Close()

	proxy.SetStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	out := newFlushWriter(w)
	if err := out.Flush(); err != nil {
		return &streamError{err: err}
	}

	res, err := relay.New(resp.Body, relay.Options{
		TerminalReasons: f.config.TerminalReasons,
		Logger:          f.logger,
	}).Run(ctx, out)

	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, relay.ErrClientGone) || errors.Is(err, context.Canceled) {
			outcome = OutcomeClientGone
		}
		f.recordStream(endpoint, outcome, res)
		f.logger.WarnContext(ctx, "stream aborted, turn not recorded",
			"request_id", requestID,
			"model", req.Model,
			"outcome", outcome,
			"chunks_sent", res.Chunks,
			"error", err,
		)
		return &streamError{err: err}
	}

	if !res.Completed {
		f.recordStream(endpoint, OutcomeIncomplete, res)
		f.logger.InfoContext(ctx, "stream finished without completion, turn not recorded",
			"request_id", requestID,
			"model", req.Model,
			"done_reason", res.DoneReason,
			"chunks_sent", res.Chunks,
		)
		return nil
	}

	f.recordStream(endpoint, OutcomeCompleted, res)

	messages := req.CloneMessages()
	messages = append(messages, types.ChatMessage{Role: types.RoleAssistant, Content: res.Content})
	f.recorder.Submit(history.Turn{
		Timestamp: time.Now(),
		Model:     req.Model,
		Messages:  messages,
		RequestID: requestID,
	})

	f.logger.InfoContext(ctx, "stream completed",
		"request_id", requestID,
		"model", req.Model,
		"chunks_sent", res.Chunks,
		"decode_errors", res.DecodeErrors,
		"content_bytes", len(res.Content),
		"total_latency_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (f *Forwarder) forwardOnce(ctx context.Context, w http.ResponseWriter, endpoint backend.Endpoint, req *types.ChatRequest) error {
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	resp, err := f.backend.Do(ctx, endpoint, req.Raw)
	f.recordBackend(endpoint, nil, err, start)
	if err != nil {
		f.logger.ErrorContext(ctx, "backend request failed",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		return err
	}
	if f.metrics != nil {
		f.metrics.RecordBackendRequest(string(endpoint), resp.StatusCode, time.Since(start))
	}

	var parsed types.ChatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return types.NewInternalError("invalid response from backend", err)
	}
	reply, ok := parsed.AssistantMessage()
	if !ok {
		return types.NewInternalError("backend response has no message", nil)
	}

	messages := req.CloneMessages()
	messages = append(messages, reply)

	err = f.recorder.Record(ctx, history.Turn{
		Timestamp: time.Now(),
		Model:     req.Model,
		Messages:  messages,
		RequestID: requestID,
	})
	if err != nil {
		if !f.config.BestEffortSync {
			return err
		}
		f.logger.WarnContext(ctx, "history write failed, returning response anyway",
			"request_id", requestID,
			"error", err,
		)
	}

	f.logger.InfoContext(ctx, "chat request completed",
		"request_id", requestID,
		"model", req.Model,
		"done_reason", parsed.DoneReason,
		"total_latency_ms", time.Since(start).Milliseconds(),
	)

	return proxy.WriteRawResponse(w, resp.StatusCode, resp.ContentType, resp.Body)
}

// recordBackend reports backend failures and stream starts. Successful
// non-streaming calls are reported by the caller once the status is known.
func (f *Forwarder) recordBackend(endpoint backend.Endpoint, resp *http.Response, err error, start time.Time) {
	if f.metrics == nil {
		return
	}
	switch {
	case err != nil:
		status := http.StatusBadGateway
		var backendErr *types.BackendError
		if errors.As(err, &backendErr) {
			status = backendErr.HTTPStatus()
		}
		f.metrics.RecordBackendRequest(string(endpoint), status, time.Since(start))
	case resp != nil:
		f.metrics.RecordBackendRequest(string(endpoint), resp.StatusCode, time.Since(start))
	}
}

func (f *Forwarder) recordStream(endpoint backend.Endpoint, outcome string, res relay.Result) {
	if f.metrics != nil {
		f.metrics.RecordStream(string(endpoint), outcome, res.Chunks, res.DecodeErrors)
	}
}

// streamError marks a failure after the response was committed.
type streamError struct {
	err error
}

func (e *streamError) Error() string { return "stream aborted: " + e.err.Error() }
func (e *streamError) Unwrap() error { return e.err }

// ResponseStarted reports whether err occurred after bytes were sent to the
// client, in which case no error body can be written.
func ResponseStarted(err error) bool {
	var se *streamError
	return errors.As(err, &se)
}

// flushWriter adapts an http.ResponseWriter to relay.Writer.
type flushWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	return &flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	return fw.w.Write(p)
}

func (fw *flushWriter) Flush() error {
	return fw.rc.Flush()
}
