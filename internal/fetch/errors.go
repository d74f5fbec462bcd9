package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork is a transport failure: DNS, connect, TLS, reset, timeout.
	KindNetwork Kind = iota
	// KindStatus is a 4xx/5xx response that is never retried.
	KindStatus
	// KindRateLimited is a 429 response that stayed 429 after all retries.
	KindRateLimited
	// KindBlocked is a 403 response that stayed 403 after all retries.
	KindBlocked
	// KindUnavailable is a 503 response that stayed 503 after all retries.
	KindUnavailable
	// KindNotFound is a 404 response.
	KindNotFound
	// KindDecode means the body could not be read or decoded to UTF-8.
	KindDecode
	// KindInvalidURL means no request could be built for the URL.
	KindInvalidURL
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindRateLimited:
		return "rate limited"
	case KindBlocked:
		return "blocked"
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not found"
	case KindDecode:
		return "decode"
	case KindInvalidURL:
		return "invalid url"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by Error for non-2xx responses.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrBlocked     = errors.New("access blocked")
	ErrUnavailable = errors.New("service unavailable")
	ErrNotFound    = errors.New("page not found")
	ErrHTTPStatus  = errors.New("unexpected HTTP status")
)

// Error is returned by Client.Fetch for every failure except context
// cancellation observed between attempts.
type Error struct {
	// URL is the requested URL.
	URL string
	// Status is the last HTTP status received, or 0 when no response arrived.
	Status int
	// Kind classifies the failure.
	Kind Kind
	// Attempts is the number of requests sent.
	Attempts int
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (HTTP %d after %d attempt(s)): %v", e.URL, e.Kind, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure kind is one the client retries
// before giving up.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindBlocked || k == KindUnavailable
}
