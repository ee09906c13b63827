package web

// errors.go turns service errors into JSON responses.
//
// Every error is logged with its technical detail and request id, then mapped
// through core.MapError so the client only sees a stable code with a
// user-facing message and suggested action.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/adparams/internal/core"
	"github.com/JonMunkholm/adparams/internal/csvio"
	"github.com/JonMunkholm/adparams/internal/logging"
	"github.com/JonMunkholm/adparams/internal/schema"
	"github.com/JonMunkholm/adparams/internal/service"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile     = errors.New("no file provided")
	errBadRequest = errors.New("invalid request body")
)

// statusFor picks the HTTP status for an error returned by the service layer.
// Sentinels are checked first; anything else falls back to the family of its
// user message code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, service.ErrDatasetNotFound), errors.Is(err, schema.ErrUnknownSchema):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, csvio.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrDatasetInvalid):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	code := core.MapError(err).Code
	switch {
	case strings.HasPrefix(code, "VAL"), strings.HasPrefix(code, "FILE"),
		strings.HasPrefix(code, "FLT"), strings.HasPrefix(code, "DL"),
		strings.HasPrefix(code, "REQ"):
		return http.StatusBadRequest
	case code == "RATE001":
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message with the status
// derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	writeErrorJSON(w, msg, status)
}

func writeErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
