package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a generation failure. Callers treat every kind the same
// way (they fall back) but log and count them separately.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindRateLimited
	KindSchemaMismatch
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindSchemaMismatch:
		return "schema_mismatch"
	default:
		return "other"
	}
}

// Error is the typed failure returned by Client implementations.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("genai %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("genai %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusCode exposes the upstream status for generic HTTP error helpers.
func (e *Error) HTTPStatusCode() int { return e.StatusCode }

// ErrEmptyResponse is wrapped when the service answered without any text.
var ErrEmptyResponse = errors.New("empty response")

// Wrap builds an *Error of the given kind.
func Wrap(kind Kind, status int, err error) error {
	return &Error{Kind: kind, StatusCode: status, Err: err}
}

// KindOf reports how err should be classified. Typed errors keep their kind;
// context deadlines and network timeouts are KindTimeout; nil is KindOther.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindOther
}

// kindForStatus maps an upstream HTTP status to a Kind.
func kindForStatus(code int) Kind {
	switch {
	case code == 429:
		return KindRateLimited
	case code == 408 || code == 504:
		return KindTimeout
	default:
		return KindOther
	}
}
