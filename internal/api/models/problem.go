package models

import (
	"encoding/json"
	"net/http"

	"github.com/weatherlens/weatherlens/internal/weather"
)

// Problem represents an RFC7807 error response.
// This is used for all API error responses with Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request trace identifier for debugging.
	TraceID string `json:"traceId"`

	// Kind is the weather lookup failure kind, set for lookup failures only.
	Kind weather.Kind `json:"kind,omitempty"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemType constants for standard error types.
const (
	problemBase = "https://weatherlens.dev/problems/"

	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeUnauthorized     = problemBase + "unauthorized"
	ProblemTypeForbidden        = problemBase + "forbidden"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeTooManyRequests  = problemBase + "too-many-requests"
	ProblemTypeUnsupportedMedia = problemBase + "unsupported-media-type"
	ProblemTypeTLSRequired      = problemBase + "tls-required"
	ProblemTypeInternal         = problemBase + "internal-error"
	ProblemTypeBadGateway       = problemBase + "provider-error"
	ProblemTypeUnavailable      = problemBase + "service-unavailable"

	// Upstream provider failures.
	ProblemTypeProviderUnauthorized = problemBase + "provider-unauthorized"
	ProblemTypeLocationNotFound     = problemBase + "location-not-found"
	ProblemTypeProviderRateLimited  = problemBase + "provider-rate-limited"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 Bad Request problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 Unauthorized problem.
func NewUnauthorized(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID)
	p.Detail = detail
	return p
}

// NewForbidden creates a 403 Forbidden problem.
func NewForbidden(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, traceID)
	p.Detail = detail
	return p
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID)
	p.Detail = detail
	return p
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID)
	p.Detail = detail
	return p
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	p.Detail = detail
	return p
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	p := NewProblem(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID)
	p.Detail = detail
	return p
}

// NewLookupProblem creates the problem for a failed weather lookup of the
// given kind. Detail is the user-facing message for the failure.
//
//	UNAUTHORIZED   401
//	NOT_FOUND      404
//	RATE_LIMITED   429
//	PROVIDER_ERROR 502
//	NETWORK_ERROR  503
//	UNKNOWN        500
func NewLookupProblem(kind weather.Kind, traceID, detail string) *Problem {
	var p *Problem
	switch kind {
	case weather.KindUnauthorized:
		p = NewProblem(ProblemTypeProviderUnauthorized, "Weather provider rejected the API key", http.StatusUnauthorized, traceID)
	case weather.KindNotFound:
		p = NewProblem(ProblemTypeLocationNotFound, "Location not found", http.StatusNotFound, traceID)
	case weather.KindRateLimited:
		p = NewProblem(ProblemTypeProviderRateLimited, "Weather provider rate limit exceeded", http.StatusTooManyRequests, traceID)
	case weather.KindProvider:
		p = NewProblem(ProblemTypeBadGateway, "Weather provider error", http.StatusBadGateway, traceID)
	case weather.KindNetwork:
		p = NewProblem(ProblemTypeUnavailable, "Weather provider unreachable", http.StatusServiceUnavailable, traceID)
	default:
		p = NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID)
	}
	p.Kind = kind
	p.Detail = detail
	return p
}
