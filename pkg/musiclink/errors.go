package musiclink

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a link could not be resolved.
type ErrorKind int

const (
	// NotFound means the service has no data for the link.
	NotFound ErrorKind = iota + 1
	// ServiceError means the service answered with an unexpected status.
	ServiceError
	// InvalidResponse means the payload failed validation.
	InvalidResponse
	// ConnectionFailure means the service could not be reached within the retry budget.
	ConnectionFailure
	// Throttled means the service kept rate limiting past the throttle budget.
	Throttled
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ServiceError:
		return "service_error"
	case InvalidResponse:
		return "invalid_response"
	case ConnectionFailure:
		return "connection_failure"
	case Throttled:
		return "throttled"
	default:
		return "unknown"
	}
}

// ResolutionError describes a failed resolution of a single link.
type ResolutionError struct {
	Kind   ErrorKind
	URL    string
	Status int    // HTTP status, if any.
	Body   string // Response body for service errors.
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve %s: %s", e.URL, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// KindOf returns the resolution error kind carried by err, or zero if err is nil or unrelated.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrUnknownPlatform is returned when a platform key is not registered.
	ErrUnknownPlatform = errors.New("unknown platform")
)
