package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// With helpers, handlers stay short and consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "student not found with id 7"}
//
// Clients always know what fields to expect, whether it's a 400, 404, or 500.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pravara/school-backend/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. Every payload in this API is a
// handful of short strings.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// MessageResponse is the body of endpoints that only confirm something.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code go out BEFORE the body. Once Encode writes,
// any header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation      → 400 validation_error
//	apperror.ErrConflict        → 400 conflict (duplicates are a client input problem here)
//	apperror.ErrNotFound        → 404 not_found
//	apperror.ErrForbidden       → 403 forbidden
//	apperror.ErrUnauthenticated → 401 unauthorized (+ WWW-Authenticate: Bearer)
//	anything else               → 500 internal_error, details only in the log
//
// errors.Is() walks the whole chain, so a service can wrap an AppError with
// fmt.Errorf("...: %w", err) and the mapping still works.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errorType = "conflict"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
			w.Header().Set("WWW-Authenticate", "Bearer")
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
			})
			return
		}
	}

	// Unknown error: NEVER expose internal details to the client.
	// The raw message might contain SQL, file paths or other sensitive info.
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Failures come back as validation errors so writeError answers 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// queryInt reads a required integer query parameter. The first name found
// wins, so callers can accept aliases.
func queryInt(r *http.Request, names ...string) (int64, error) {
	q := r.URL.Query()
	for _, name := range names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, apperror.ValidationFailed(name, fmt.Sprintf("%s must be an integer", name))
		}
		return v, nil
	}
	return 0, apperror.ValidationFailed(names[0], fmt.Sprintf("%s is required", names[0]))
}
