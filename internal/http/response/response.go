// Package response writes JSON responses for handlers that run outside the
// huma operation pipeline (router-level middleware, 404 and 405 handlers).
// Error bodies share the {code, message, details} shape of API errors.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/roadbook/roadbook-server/internal/errors"
	"github.com/roadbook/roadbook-server/internal/store"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		if logger != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
	}
}

// Error writes a domain error with its mapped status code.
func Error(w http.ResponseWriter, err *domainerrors.Error, logger *slog.Logger) {
	JSON(w, err.HTTPStatus(), ErrorBody{
		Code:    string(err.Code),
		Message: err.Message,
		Details: err.Details,
	}, logger)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, domainerrors.NotFound(message), logger)
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	JSON(w, http.StatusMethodNotAllowed, ErrorBody{
		Code:    string(domainerrors.CodeValidation),
		Message: "method not allowed",
	}, logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, domainerrors.RateLimited(message), logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain and store errors keep their status codes; unknown errors become 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		Error(w, domainErr, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		code := domainerrors.CodePersistence
		if storeErr.HTTPCode() == http.StatusNotFound {
			code = domainerrors.CodeNotFound
		}
		JSON(w, storeErr.HTTPCode(), ErrorBody{Code: string(code), Message: storeErr.Message}, logger)
		return
	}

	// Unknown error = 500
	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, domainerrors.Internal("internal server error"), logger)
}
