package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"harvest-hq/gateway/pkg/proxy/types"
)

// Content types written by the gateway.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeStream = types.StreamContentType
)

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes errResp with its HTTP status.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.HTTPStatusCode(), errResp)
}

// WriteRawResponse writes a backend body unchanged.
func WriteRawResponse(w http.ResponseWriter, statusCode int, contentType string, body []byte) error {
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}

// SetStreamHeaders sets the headers for a relayed NDJSON stream.
// The content type matches what existing clients of the gateway expect.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
