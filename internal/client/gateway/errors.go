package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a normalized backend failure. Flow controllers branch on
// kinds only and never see raw status codes.
type Kind int

const (
	// KindUnauthorized means the session is invalid or expired, or the
	// presented credentials were rejected.
	KindUnauthorized Kind = iota
	// KindForbidden means the backend refused the operation for an
	// authenticated caller. The session itself stays valid.
	KindForbidden
	// KindBadRequest means the input was rejected and the user can correct it.
	KindBadRequest
	// KindServerError means the backend failed internally.
	KindServerError
	// KindNetworkError means no response was received at all.
	KindNetworkError
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad request"
	case KindServerError:
		return "server error"
	case KindNetworkError:
		return "network error"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by the gateway.
type Error struct {
	// Kind is the normalized failure class.
	Kind Kind
	// Message is the backend-provided detail, when one was present.
	Message string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// UserMessage returns the text to surface in a notification. Backend detail
// is shown verbatim only for user-correctable failures; server and transport
// faults get a generic message while the detail goes to the log.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindBadRequest, KindUnauthorized, KindForbidden:
		if e.Message != "" {
			return e.Message
		}
		return "request was rejected, please check your input"
	case KindNetworkError:
		return "could not reach the server, please try again"
	default:
		return "something went wrong, please try again later"
	}
}

// IsKind reports whether err is a gateway Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// IsUnauthorized reports whether err is a normalized Unauthorized failure.
func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }

// errorBody is the JSON error envelope used by the backend.
type errorBody struct {
	Error   any    `json:"error"`
	Message string `json:"message"`
}

// messageFrom extracts the backend "message" field from an error payload.
// Returns the empty string for non-JSON or message-less bodies.
func messageFrom(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.Message
}
