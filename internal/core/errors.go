// Package core provides the error kinds shared by the timetable lookup service.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure that happened while answering a query.
type ErrorKind string

const (
	// KindTransport indicates a failed or timed out document fetch.
	KindTransport ErrorKind = "transport_error"
	// KindParse indicates a document that could not be scanned at all.
	KindParse ErrorKind = "parse_error"
	// KindScheduleNotFound indicates a timetable page without the expected table.
	KindScheduleNotFound ErrorKind = "schedule_not_found"
	// KindInvalidInput indicates a query rejected before any network access.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindNotFound indicates an unknown route or resource.
	KindNotFound ErrorKind = "not_found"
)

// Error is the base error type for all service errors.
type Error struct {
	Kind       ErrorKind `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	// URL of the document involved, if any
	URL string `json:"url,omitempty"`
	// Underlying error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status the HTTP surface answers with for this error.
// Upstream status codes carried by transport errors are not leaked to clients.
func (e *Error) HTTPStatusCode() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTransport, KindParse, KindScheduleNotFound:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *Error) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Kind,
			"message": e.Message,
		},
	}
}

// NewTransportError creates an error for a failed fetch. statusCode is the upstream
// HTTP status, or 0 when no response was received.
func NewTransportError(url string, statusCode int, message string, err error) *Error {
	return &Error{
		Kind:       KindTransport,
		Message:    message,
		StatusCode: statusCode,
		URL:        url,
		Err:        err,
	}
}

// NewParseError creates an error for a document that could not be scanned.
func NewParseError(url string, message string, err error) *Error {
	return &Error{
		Kind:    KindParse,
		Message: message,
		URL:     url,
		Err:     err,
	}
}

// NewScheduleNotFoundError creates an error for a page without a timetable table.
func NewScheduleNotFoundError(url string) *Error {
	return &Error{
		Kind:    KindScheduleNotFound,
		Message: "timetable table not found",
		URL:     url,
	}
}

// NewInvalidInputError creates an error for a rejected query.
func NewInvalidInputError(message string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: message,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
