package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure. The set is fixed: adapters must map
// whatever their backend signals onto one of these values.
type Kind int

const (
	// KindTimeout covers request deadlines and transient server unavailability.
	KindTimeout Kind = iota
	// KindRateLimited covers quota exhaustion (HTTP 429 and equivalents).
	KindRateLimited
	// KindAuthError covers invalid or missing credentials.
	KindAuthError
	// KindUnsupportedCapability covers capabilities the provider does not offer.
	KindUnsupportedCapability
	// KindProviderError covers everything else (bad requests, malformed
	// responses, unexpected provider behavior).
	KindProviderError
)

// String returns the string representation of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthError:
		return "auth_error"
	case KindUnsupportedCapability:
		return "unsupported_capability"
	case KindProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Error is the classified failure an adapter reports. It wraps the
// underlying cause for diagnostics while exposing a stable Kind.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a classified provider error.
func NewError(kind Kind, providerName string, err error) *Error {
	return &Error{Kind: kind, Provider: providerName, Err: err}
}

// KindOf extracts the failure kind from an error. Context deadline errors
// are treated as timeouts; anything unclassified is a provider error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindProviderError
}

// IsTransient reports whether err is retry-worthy: timeouts and rate limits
// are, everything else (auth, unsupported capability, provider errors) is a
// permanent failure for the provider that produced it.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindRateLimited:
		return true
	default:
		return false
	}
}

// FromStatusCode maps an HTTP status code onto the failure taxonomy. Server
// unavailability (5xx other than 501) lands on KindTimeout so the chain
// retries it like any other transient outage.
func FromStatusCode(providerName string, status int, err error) *Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(KindAuthError, providerName, err)
	case http.StatusTooManyRequests:
		return NewError(KindRateLimited, providerName, err)
	case http.StatusNotImplemented:
		return NewError(KindUnsupportedCapability, providerName, err)
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return NewError(KindTimeout, providerName, err)
	default:
		return NewError(KindProviderError, providerName, err)
	}
}
