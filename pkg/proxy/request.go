package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"harvest-hq/gateway/pkg/proxy/types"
)

const (
	// DefaultMaxRequestBodySize is used when no limit is configured (10MB).
	DefaultMaxRequestBodySize = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ParseChatRequest reads and validates a chat request body. Bodies larger
// than maxBytes are rejected. The raw bytes are kept on the returned request
// so they can be forwarded unchanged.
//
// Example usage:
//
//	req, err := ParseChatRequest(r, cfg.Server.MaxRequestBodySize)
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func ParseChatRequest(r *http.Request, maxBytes int64) (*types.ChatRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBodySize
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, types.NewInternalError("failed to read request body", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, types.NewValidationError("body",
			fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes))
	}

	req, err := types.DecodeChatRequest(body)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseLimit reads the "limit" query parameter. A missing parameter yields
// def; values above max are clamped.
func ParseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && raw[0] != '-' {
			return max, nil
		}
		return 0, types.NewValidationError("limit", fmt.Sprintf("invalid limit %q: must be a positive integer", raw))
	}
	if n <= 0 {
		return 0, types.NewValidationError("limit", fmt.Sprintf("invalid limit %d: must be a positive integer", n))
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

// ExtractRequestID returns the client-supplied request ID, if any.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
