package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/ragmesh/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("local", func(o *Options) {
		o.Host = srv.URL
		o.Model = "test-model"
	})
}

func TestComplete_Success(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(generateResponse{Response: "hi there", Done: true})
	})

	text, err := c.Complete(context.Background(), provider.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   provider.Kind
	}{
		{http.StatusTooManyRequests, provider.KindRateLimited},
		{http.StatusUnauthorized, provider.KindAuthError},
		{http.StatusInternalServerError, provider.KindTimeout},
		{http.StatusBadRequest, provider.KindProviderError},
	}

	for _, tt := range tests {
		c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := c.Complete(context.Background(), provider.Request{Prompt: "hello"})
		require.Error(t, err)
		assert.Equal(t, tt.want, provider.KindOf(err), "status %d", tt.status)
	}
}

func TestComplete_OllamaError(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Error: "model not loaded"})
	})

	_, err := c.Complete(context.Background(), provider.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Equal(t, provider.KindProviderError, provider.KindOf(err))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestComplete_DeadlineBecomesTimeout(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := c.Complete(ctx, provider.Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Equal(t, provider.KindTimeout, provider.KindOf(err))
}
