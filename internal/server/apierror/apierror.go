// Package apierror renders JSON error envelopes for the HTTP API.
package apierror

import (
	"encoding/json"
	"net/http"
	"time"
)

var _ error = (*Error)(nil)

// Error is the JSON body of every failed request
type Error struct {
	Status    int     `json:"status"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Method    *string `json:"method,omitempty"`
	Path      *string `json:"path,omitempty"`
}

// New creates an error with a custom message
func New(status int, message string) *Error {
	return &Error{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// FromStatus creates an error carrying the standard status text
func FromStatus(status int) *Error {
	return New(status, http.StatusText(status))
}

func (e *Error) Error() string {
	return e.Message
}

// WithRequest records the method and path for client errors
func (e *Error) WithRequest(r *http.Request) *Error {
	if e.Status < http.StatusInternalServerError {
		method, path := r.Method, r.URL.Path
		e.Method = &method
		e.Path = &path
	}
	return e
}

// Write sends the envelope
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e)
}
