package chat

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNetwork covers transport failures and server-side errors.
	ErrNetwork = errors.New("network failure")
	// ErrValidation is returned for requests rejected before or by the server as malformed.
	ErrValidation = errors.New("validation failure")
	// ErrForbidden is the authorization failure: the caller may not act on the resource.
	ErrForbidden = errors.New("not authorized")
	// ErrNotFound is returned for unknown conversations or messages.
	ErrNotFound = errors.New("not found")
)

// Kind is the coarse classification used for notifications and metrics.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindUnknown       Kind = "unknown"
)

// Classify maps err onto the error taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Describe renders err as a short user-facing notification.
func Describe(action string, err error) string {
	var b strings.Builder
	b.WriteString(action)
	b.WriteString(" failed")
	switch Classify(err) {
	case KindNetwork:
		b.WriteString(": server unreachable")
	case KindValidation:
		b.WriteString(": invalid request")
	case KindAuthorization:
		b.WriteString(": not allowed")
	case KindNotFound:
		b.WriteString(": not found")
	default:
		if err != nil {
			b.WriteString(": ")
			b.WriteString(err.Error())
		}
	}
	return b.String()
}
