// Package ollama provides a provider adapter for a local Ollama server.
// Ollama has no official Go SDK, so the adapter speaks the generate API
// directly over HTTP and maps status codes onto the provider error taxonomy.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/hupe1980/ragmesh/provider"
)

const defaultHost = "http://localhost:11434"

// Options configures the Ollama adapter.
type Options struct {
	Model      string
	Host       string
	HTTPClient *http.Client
}

// Completer speaks the Ollama generate API behind the provider.Completer
// interface.
type Completer struct {
	name   string
	client *http.Client
	opts   Options
}

// Compile-time interface assertion.
var _ provider.Completer = (*Completer)(nil)

// generateRequest is the payload for POST /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// generateResponse is the non-streaming response from /api/generate.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// New creates an Ollama adapter. The name is the provider identifier used in
// routing results and failure reports.
func New(name string, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: "llama3",
		Host:  defaultHost,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Completer{name: name, client: client, opts: opts}
}

// Name implements provider.Completer.
func (c *Completer) Name() string { return c.name }

// Complete implements provider.Completer for the Ollama generate API.
func (c *Completer) Complete(ctx context.Context, req provider.Request) (string, error) {
	payload := generateRequest{
		Model:  c.opts.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Params.Temperature,
			NumPredict:  req.Params.MaxTokens,
			TopP:        req.Params.TopP,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", provider.NewError(provider.KindProviderError, c.name,
			fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", provider.NewError(provider.KindProviderError, c.name,
			fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", c.classify(ctx, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", provider.FromStatusCode(c.name, resp.StatusCode,
			fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(raw)))
	}

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return "", provider.NewError(provider.KindProviderError, c.name,
			fmt.Errorf("failed to decode response: %w", err))
	}
	if gen.Error != "" {
		return "", provider.NewError(provider.KindProviderError, c.name,
			fmt.Errorf("ollama error: %s", gen.Error))
	}

	return gen.Response, nil
}

// classify maps transport errors onto the provider error taxonomy.
func (c *Completer) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Caller cancellation is not a provider failure.
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(provider.KindTimeout, c.name, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.NewError(provider.KindTimeout, c.name, err)
	}

	return provider.NewError(provider.KindProviderError, c.name, err)
}
