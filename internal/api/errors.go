package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkarlsen/userdir/internal/user"
)

// ErrorResponse is the envelope returned for non-validation failures.
type ErrorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// ValidationErrorResponse is the envelope returned when a submitted
// record fails field validation. Errors holds one "field: message"
// entry per failing field.
type ValidationErrorResponse struct {
	Status  int      `json:"status"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Path    string   `json:"path"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes the generic error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeValidationError writes a 400 response listing every failing field.
func writeValidationError(w http.ResponseWriter, r *http.Request, fieldErrs []user.FieldError) {
	errs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fe.String())
	}
	writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Status:  http.StatusBadRequest,
		Error:   http.StatusText(http.StatusBadRequest),
		Message: "Validation failed",
		Errors:  errs,
		Path:    r.URL.Path,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusInternalServerError, message)
}
