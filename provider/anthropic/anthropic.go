// Package anthropic provides a provider adapter for the Anthropic Messages
// API using the official SDK. Provider specific error signals (HTTP status
// codes, network timeouts) are mapped onto the fixed provider error taxonomy.
package anthropic

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/ragmesh/provider"
)

// Options configures the Anthropic adapter (model id, credentials, endpoint).
type Options struct {
	Model   anthropic.Model
	APIKey  string
	BaseURL string
}

// Completer wraps the Anthropic Messages API behind the provider.Completer
// interface.
type Completer struct {
	name   string
	client *anthropic.Client
	opts   Options
}

// Compile-time interface assertion.
var _ provider.Completer = (*Completer)(nil)

// New creates an Anthropic adapter using the official client. The name is
// the provider identifier used in routing results and failure reports.
func New(name string, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: anthropic.ModelClaude3_5Sonnet20241022,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Completer{name: name, client: &client, opts: opts}
}

// NewFromClient creates an Anthropic adapter from an existing client.
func NewFromClient(name string, client *anthropic.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: anthropic.ModelClaude3_5Sonnet20241022,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Completer{name: name, client: client, opts: opts}
}

// Name implements provider.Completer.
func (c *Completer) Name() string { return c.name }

// Complete implements provider.Completer for the Anthropic Messages API.
func (c *Completer) Complete(ctx context.Context, req provider.Request) (string, error) {
	maxTokens := int64(req.Params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     c.opts.Model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Params.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Params.Temperature)
	}
	if req.Params.TopP > 0 {
		params.TopP = anthropic.Float(req.Params.TopP)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", c.classify(ctx, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return text.String(), nil
}

// classify maps SDK errors onto the provider error taxonomy.
func (c *Completer) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Caller cancellation is not a provider failure.
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(provider.KindTimeout, c.name, err)
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return provider.FromStatusCode(c.name, apierr.StatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.NewError(provider.KindTimeout, c.name, err)
	}

	return provider.NewError(provider.KindProviderError, c.name, err)
}
