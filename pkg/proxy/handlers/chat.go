package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"harvest-hq/gateway/pkg/proxy"
	"harvest-hq/gateway/pkg/proxy/backend"
	"harvest-hq/gateway/pkg/proxy/forwarder"
	"harvest-hq/gateway/pkg/proxy/middleware"
	"harvest-hq/gateway/pkg/proxy/types"
)

// Forwarder runs one chat turn.
type Forwarder interface {
	Forward(ctx context.Context, w http.ResponseWriter, endpoint backend.Endpoint, req *types.ChatRequest) error
}

// ChatHandler serves /api/chat or /api/generate.
type ChatHandler struct {
	forwarder   Forwarder
	endpoint    backend.Endpoint
	maxBodySize int64
}

// NewChatHandler creates a handler forwarding to endpoint.
func NewChatHandler(f Forwarder, endpoint backend.Endpoint, maxBodySize int64) *ChatHandler {
	return &ChatHandler{forwarder: f, endpoint: endpoint, maxBodySize: maxBodySize}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(ctx, w, types.NewErrorResponse(http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			types.ErrorTypeInvalidRequest, "method"))
		return
	}

	req, err := proxy.ParseChatRequest(r, h.maxBodySize)
	if err != nil {
		slog.WarnContext(ctx, "rejected chat request",
			"request_id", requestID,
			"endpoint", h.endpoint,
			"error", err,
		)
		writeError(ctx, w, proxy.HandleError(err))
		return
	}

	slog.DebugContext(ctx, "processing chat request",
		"request_id", requestID,
		"endpoint", h.endpoint,
		"model", req.Model,
		"messages", len(req.Messages),
		"stream", req.IsStreaming(),
	)

	err = h.forwarder.Forward(ctx, w, h.endpoint, req)
	if err == nil {
		return
	}
	if forwarder.ResponseStarted(err) {
		// The stream is committed; the client sees a truncated body.
		return
	}

	slog.ErrorContext(ctx, "chat request failed",
		"request_id", requestID,
		"endpoint", h.endpoint,
		"model", req.Model,
		"error", err,
	)
	writeError(ctx, w, proxy.HandleError(err))
}

func writeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
