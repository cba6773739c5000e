// Package apierror classifies failures into the categories shown to users.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the category of a failure.
type Kind int

const (
	// Unknown is any failure that was not classified.
	Unknown Kind = iota
	// Validation is empty or malformed input caught before any I/O.
	Validation
	// Timeout is a request that exceeded the transport deadline.
	Timeout
	// Network is a connectivity failure.
	Network
	// MalformedResponse is a response body that is not JSON.
	MalformedResponse
	// HTTPStatus is a non-2xx response.
	HTTPStatus
	// ServerLogic is an envelope with success=false or without data.
	ServerLogic
	// NotFoundLocal is a mutation of an id absent from the local collection.
	NotFoundLocal
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	Validation:        "validation",
	Timeout:           "timeout",
	Network:           "network",
	MalformedResponse: "malformed_response",
	HTTPStatus:        "http_status",
	ServerLogic:       "server_logic",
	NotFoundLocal:     "not_found_local",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind Kind

	// Op names the operation that failed, e.g. "POST /todos".
	Op string

	// Status is the HTTP status for HTTPStatus failures.
	Status int

	// Message is the server-supplied or locally built message.
	Message string

	// Body is the raw response text, kept for MalformedResponse diagnosis.
	Body string

	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case HTTPStatus:
		msg = fmt.Sprintf("http %d", e.Status)
		if e.Message != "" {
			msg += ": " + e.Message
		}
	case MalformedResponse:
		msg = "response is not valid JSON: " + e.Body
	default:
		msg = e.Message
		if msg == "" && e.Err != nil {
			msg = e.Err.Error()
		}
		if msg == "" {
			msg = e.Kind.String()
		}
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf returns a Validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFoundLocal error for id.
func NotFound(id string) error {
	return &Error{Kind: NotFoundLocal, Message: "task not found: " + id}
}

// ServerLogicf returns a ServerLogic error.
func ServerLogicf(format string, args ...any) error {
	return &Error{Kind: ServerLogic, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, classifying bare context and net errors.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout
		}
		return Network
	}
	return Unknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == HTTPStatus {
		return e.Status
	}
	return 0
}

// Message converts err into the single human-readable string surfaced to
// users. It returns "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		switch KindOf(err) {
		case Timeout:
			return timeoutMessage
		case Network:
			return networkMessage
		}
		return err.Error()
	}

	switch e.Kind {
	case Timeout:
		return timeoutMessage
	case Network:
		return networkMessage
	case HTTPStatus:
		return statusMessage(e.Status, e.Message)
	case MalformedResponse:
		return "response is not valid JSON: " + e.Body
	case ServerLogic:
		if e.Message == "" {
			return "unknown server error"
		}
		return e.Message
	}

	if e.Message != "" {
		return e.Message
	}
	return err.Error()
}

const (
	timeoutMessage = "the connection took too long; check your internet connection and that the server is available"
	networkMessage = "connection error: check your internet connection"
)

func statusMessage(status int, msg string) string {
	or := func(fallback string) string {
		if msg != "" {
			return msg
		}
		return fallback
	}

	switch status {
	case 400:
		return "invalid request: " + or("check the submitted data")
	case 401:
		return "unauthorized: token expired or invalid"
	case 403:
		return "access denied: you do not have permission for this action"
	case 404:
		return "resource not found"
	case 409:
		return "conflict: " + or("the resource already exists")
	case 422:
		return "invalid data: " + or("check the fields")
	case 500:
		return "server error: try again later"
	case 503:
		return "service unavailable: try again later"
	}
	return or(fmt.Sprintf("HTTP error %d", status))
}
