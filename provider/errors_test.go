package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "auth_error", KindAuthError.String())
	assert.Equal(t, "unsupported_capability", KindUnsupportedCapability.String())
	assert.Equal(t, "provider_error", KindProviderError.String())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified error", NewError(KindRateLimited, "a", nil), KindRateLimited},
		{"wrapped classified error", fmt.Errorf("route: %w", NewError(KindAuthError, "a", nil)), KindAuthError},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"plain error", errors.New("boom"), KindProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewError(KindTimeout, "a", nil)))
	assert.True(t, IsTransient(NewError(KindRateLimited, "a", nil)))
	assert.True(t, IsTransient(context.DeadlineExceeded))

	assert.False(t, IsTransient(NewError(KindAuthError, "a", nil)))
	assert.False(t, IsTransient(NewError(KindUnsupportedCapability, "a", nil)))
	assert.False(t, IsTransient(NewError(KindProviderError, "a", nil)))
	assert.False(t, IsTransient(errors.New("boom")))
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuthError},
		{http.StatusForbidden, KindAuthError},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusNotImplemented, KindUnsupportedCapability},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusInternalServerError, KindTimeout},
		{http.StatusBadGateway, KindTimeout},
		{http.StatusServiceUnavailable, KindTimeout},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusBadRequest, KindProviderError},
		{http.StatusNotFound, KindProviderError},
	}

	for _, tt := range tests {
		err := FromStatusCode("prov", tt.status, errors.New("cause"))
		assert.Equal(t, tt.want, err.Kind, "status %d", tt.status)
		assert.Equal(t, "prov", err.Provider)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewError(KindTimeout, "a", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "cause")
}
