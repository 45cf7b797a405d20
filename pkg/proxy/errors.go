package proxy

import (
	"context"
	"errors"
	"net/http"

	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/proxy/types"
)

// HandleError converts an error to the JSON body written to clients.
//
//   - *types.ValidationError: 400 with the offending field
//   - *types.BackendError: the backend's status, or 502 if unreachable
//   - *history.StorageError: 500
//   - anything else: 500 with a generic message
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var valErr *types.ValidationError
	if errors.As(err, &valErr) {
		return types.NewInvalidRequestError(valErr.Message, valErr.Field)
	}

	var backendErr *types.BackendError
	if errors.As(err, &backendErr) {
		return types.NewErrorResponse(backendErr.HTTPStatus(), backendErr.Error(), types.ErrorTypeBackend, "")
	}

	var storageErr *history.StorageError
	if errors.As(err, &storageErr) {
		return types.NewErrorResponse(http.StatusInternalServerError,
			"chat history storage failed", types.ErrorTypeStorage, "")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewErrorResponse(http.StatusGatewayTimeout, "request timed out", types.ErrorTypeServerError, "")
	}

	var internalErr *types.InternalError
	if errors.As(err, &internalErr) {
		return types.NewServerError(internalErr.Message)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

// NotImplemented is returned for optional capabilities the configured
// history backend does not provide.
func NotImplemented(message string) *types.ErrorResponse {
	return types.NewErrorResponse(http.StatusNotImplemented, message, types.ErrorTypeNotImplemented, "")
}
