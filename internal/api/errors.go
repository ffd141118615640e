package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// APIError is the body of every error response.
type APIError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

func (e APIError) Error() string { return e.Message }

const (
	ErrTypeValidation   = "validation_error"
	ErrTypeNotFound     = "not_found"
	ErrTypeUnauthorized = "unauthorized"
	ErrTypeUpstream     = "upstream_error"
	ErrTypeTimeout      = "timeout"
	ErrTypeUnavailable  = "service_unavailable"
	ErrTypeInternal     = "internal_error"
)

// errorHandler writes and logs structured errors.
type errorHandler struct {
	logger *log.Logger
}

func (eh *errorHandler) write(w http.ResponseWriter, r *http.Request, status int, errType, message string, ctx map[string]any) {
	e := APIError{
		Type:      errType,
		Message:   message,
		Context:   ctx,
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	level := "WARN"
	if status >= 500 {
		level = "ERROR"
	}
	eh.logger.Printf("error level=%s type=%s status=%d request_id=%s path=%s message=%q",
		level, e.Type, status, e.RequestID, r.URL.Path, e.Message)

	w.Header().Set("X-Error-Type", e.Type)
	writeJSON(w, status, e)
}

func (eh *errorHandler) validation(w http.ResponseWriter, r *http.Request, field, message string) {
	eh.write(w, r, http.StatusBadRequest, ErrTypeValidation, "validation failed: "+message, map[string]any{"field": field})
}

// recoverer turns a panic into a 500 with the structured body
func (eh *errorHandler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				eh.logger.Printf("panic_recovered request_id=%s path=%s panic=%v",
					middleware.GetReqID(r.Context()), r.URL.Path, rvr)
				eh.write(w, r, http.StatusInternalServerError, ErrTypeInternal, "internal server error",
					map[string]any{"panic": fmt.Sprint(rvr)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-PokeThrow-Version", Version)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
