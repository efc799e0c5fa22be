// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agrimind/agrimind/internal/api/middleware"
	"github.com/agrimind/agrimind/internal/api/models"
	"github.com/agrimind/agrimind/internal/apperr"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	traceID := middleware.GetRequestID(r.Context())
	problem := models.NewBadRequest(traceID, detail, errors)
	Error(w, r, problem)
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	problem := models.NewNotFound(traceID, detail)
	Error(w, r, problem)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	problem := models.NewInternalError(traceID, detail)
	Error(w, r, problem)
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	problem := models.NewServiceUnavailable(traceID, detail)
	Error(w, r, problem)
}

// CapabilityDisabled writes a 503 response for a feature whose model is
// not loaded.
func CapabilityDisabled(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	problem := models.NewCapabilityDisabled(traceID, detail)
	Error(w, r, problem)
}

// Details for 5xx problems are fixed; upstream error text can carry
// internal addresses.
const (
	detailCapabilityDisabled  = "the requested capability is not available"
	detailUpstreamTimeout     = "an upstream service timed out"
	detailUpstreamUnavailable = "an upstream service is unavailable"
	detailInternal            = "an unexpected error occurred"
)

// FromError writes the problem matching err's class in the apperr taxonomy.
// Upstream classes are checked before ErrModelUnavailable so that a model
// server timing out mid-request reports 504, not a disabled capability.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetRequestID(r.Context())

	var problem *models.Problem
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		problem = models.NewBadRequest(traceID, err.Error(), fieldErrors(err))
	case errors.Is(err, apperr.ErrNotFound):
		problem = models.NewNotFound(traceID, err.Error())
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		problem = models.NewGatewayTimeout(traceID, detailUpstreamTimeout)
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		problem = models.NewServiceUnavailable(traceID, detailUpstreamUnavailable)
	case errors.Is(err, apperr.ErrModelUnavailable):
		problem = models.NewCapabilityDisabled(traceID, detailCapabilityDisabled)
	default:
		problem = models.NewInternalError(traceID, detailInternal)
	}
	Error(w, r, problem)
}

// StatusFor returns the HTTP status FromError would write for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fieldErrors(err error) []models.FieldError {
	var fe *apperr.FieldError
	if !errors.As(err, &fe) {
		return nil
	}
	return []models.FieldError{{Field: fe.Field, Message: fe.Message}}
}
