package models

import (
	"encoding/json"
	"net/http"
)

// ProblemContentType is the media type of every error body.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 error body. TraceID echoes the request ID so a
// client report can be matched to the server log line.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://prohealth.app/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation           = problemBase + "validation-error"
	ProblemTypeUnauthorized         = problemBase + "unauthorized"
	ProblemTypeForbidden            = problemBase + "forbidden"
	ProblemTypeNotFound             = problemBase + "not-found"
	ProblemTypeUnsupportedMediaType = problemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests      = problemBase + "too-many-requests"
	ProblemTypeInternal             = problemBase + "internal-error"
	ProblemTypeUnavailable          = problemBase + "service-unavailable"
)

var problemTitles = map[int]struct{ typ, title string }{
	http.StatusBadRequest:           {ProblemTypeValidation, "Validation error"},
	http.StatusUnauthorized:         {ProblemTypeUnauthorized, "Unauthorized"},
	http.StatusForbidden:            {ProblemTypeForbidden, "Forbidden"},
	http.StatusNotFound:             {ProblemTypeNotFound, "Not found"},
	http.StatusUnsupportedMediaType: {ProblemTypeUnsupportedMediaType, "Unsupported media type"},
	http.StatusTooManyRequests:      {ProblemTypeTooManyRequests, "Too many requests"},
	http.StatusInternalServerError:  {ProblemTypeInternal, "Internal server error"},
	http.StatusServiceUnavailable:   {ProblemTypeUnavailable, "Service unavailable"},
}

// NewProblem creates a Problem of an explicit type.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{Type: problemType, Title: title, Status: status, TraceID: traceID}
}

// ProblemFor creates a Problem for one of the API's standard statuses.
// Other statuses get "about:blank" and the HTTP status text.
func ProblemFor(status int, traceID, detail string) *Problem {
	known, ok := problemTitles[status]
	if !ok {
		known.typ, known.title = "about:blank", http.StatusText(status)
	}
	p := NewProblem(known.typ, known.title, status, traceID)
	p.Detail = detail
	return p
}

// Write sends p with the problem media type.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", ProblemContentType)
	h.Set("Cache-Control", "no-store")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem carrying field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := ProblemFor(http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

func NewUnauthorized(traceID, detail string) *Problem {
	return ProblemFor(http.StatusUnauthorized, traceID, detail)
}

func NewForbidden(traceID, detail string) *Problem {
	return ProblemFor(http.StatusForbidden, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return ProblemFor(http.StatusNotFound, traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return ProblemFor(http.StatusUnsupportedMediaType, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return ProblemFor(http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return ProblemFor(http.StatusInternalServerError, traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return ProblemFor(http.StatusServiceUnavailable, traceID, detail)
}
