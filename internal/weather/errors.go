package weather

import (
	"errors"
	"fmt"
)

// Provider errors. Every failed lookup wraps exactly one of these or a
// *ProviderError.
var (
	ErrUnauthorized = errors.New("invalid API key")
	ErrNotFound     = errors.New("location not found")
	ErrRateLimited  = errors.New("API rate limit exceeded")
	ErrNetwork      = errors.New("network error")
)

// UnknownErrorMessage is used when a provider error carries no message.
const UnknownErrorMessage = "Unknown error"

// ProviderError is a non-2xx provider response that has no dedicated kind.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("API Error: %d - %s", e.Status, e.Message)
}

// Kind classifies a lookup failure.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindProvider     Kind = "PROVIDER_ERROR"
	KindNetwork      Kind = "NETWORK_ERROR"
	KindUnknown      Kind = "UNKNOWN"
)

// KindOf returns the failure kind of err.
func KindOf(err error) Kind {
	var perr *ProviderError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.As(err, &perr):
		return KindProvider
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// NetworkError wraps a transport failure so it matches ErrNetwork while
// keeping the cause.
func NetworkError(cause error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, cause)
}
