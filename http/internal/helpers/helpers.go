// Package helpers provides the request decoding and response writing shared
// by the chi and gin routers, so both answer with the same bodies and status codes.
package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mark3labs/minisafe-go"
	httpminisafe "github.com/mark3labs/minisafe-go/http"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string             `json:"error"`
	Code  minisafe.ErrorCode `json:"code,omitempty"`
}

// StatusFor maps an action error to an HTTP status.
// Form and input errors are the client's; everything else failed upstream at
// the wallet or the node.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, httpminisafe.ErrMerchantNotFound):
		return http.StatusNotFound
	case errors.Is(err, httpminisafe.ErrInvalidRequest),
		errors.Is(err, minisafe.ErrEmptyField),
		errors.Is(err, minisafe.ErrMerchantNotSelected),
		errors.Is(err, minisafe.ErrInvalidAmount),
		errors.Is(err, minisafe.ErrInvalidAddress),
		errors.Is(err, minisafe.ErrUnknownToken):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// DecodeJSON decodes the request body into v. An empty body leaves v unchanged.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", httpminisafe.ErrInvalidRequest, err)
	}
	return nil
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// WriteError writes err as an ErrorResponse.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), NewErrorResponse(err))
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Code: minisafe.CodeOf(err)}
}

// Respond writes v on success or the error otherwise.
func Respond(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}
