package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies provider failures.
type Kind int

const (
	KindUnavailable Kind = iota
	KindRateLimited
	KindInvalidResponse
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	default:
		return "unavailable"
	}
}

// Error is returned by every provider. Content carries the raw model output
// for invalid and truncated responses.
type Error struct {
	Kind     Kind
	Provider string
	Content  json.RawMessage
	Err      error
}

func (e *Error) Error() string {
	prefix := "llm"
	if e.Provider != "" {
		prefix = e.Provider
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// errorFromStatus maps an HTTP status from a provider SDK error.
func errorFromStatus(provider string, status int, err error) error {
	kind := KindUnavailable
	if status == http.StatusTooManyRequests {
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Provider: provider, Err: err}
}
