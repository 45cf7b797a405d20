package handlers

import (
	"log/slog"
	"net/http"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/proxy"
	"harvest-hq/gateway/pkg/proxy/middleware"
)

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Records []history.Record `json:"records"`
	Count   int              `json:"count"`
	Total   int64            `json:"total"`
}

// HistoryHandler serves recent history records, newest first.
type HistoryHandler struct {
	store  history.Store
	config config.QueryConfig
}

// NewHistoryHandler creates a handler reading from store.
func NewHistoryHandler(store history.Store, cfg config.QueryConfig) *HistoryHandler {
	return &HistoryHandler{store: store, config: cfg}
}

// ServeHTTP implements http.Handler.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reader, ok := h.store.(history.Reader)
	if !ok {
		writeError(ctx, w, proxy.NotImplemented("the configured history backend cannot be read"))
		return
	}

	limit, err := proxy.ParseLimit(r, h.config.DefaultLimit, h.config.MaxLimit)
	if err != nil {
		writeError(ctx, w, proxy.HandleError(err))
		return
	}

	records, err := reader.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read history",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeError(ctx, w, proxy.HandleError(err))
		return
	}

	total, err := reader.Count(ctx)
	if err != nil {
		writeError(ctx, w, proxy.HandleError(err))
		return
	}

	resp := HistoryResponse{Records: records, Count: len(records), Total: total}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write history response", "error", err)
	}
}
