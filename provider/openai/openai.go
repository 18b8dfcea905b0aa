// Package openai provides a provider adapter for the OpenAI Chat Completions
// API using the official SDK. Provider specific error signals (HTTP status
// codes, network timeouts) are mapped onto the fixed provider error taxonomy.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hupe1980/ragmesh/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configures the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Completer wraps the OpenAI Chat Completions API behind the
// provider.Completer interface.
type Completer struct {
	name   string
	client *openai.Client
	opts   Options
}

// Compile-time interface assertion.
var _ provider.Completer = (*Completer)(nil)

// New creates an OpenAI adapter using the official client. The name is the
// provider identifier used in routing results and failure reports.
func New(name string, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: openai.ChatModelGPT4oMini,
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

	client := openai.NewClient(clientOpts...)

	return &Completer{name: name, client: &client, opts: opts}
}

// NewFromClient creates an OpenAI adapter from an existing client.
func NewFromClient(name string, client *openai.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: openai.ChatModelGPT4oMini,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Completer{name: name, client: client, opts: opts}
}

// Name implements provider.Completer.
func (c *Completer) Name() string { return c.name }

// Complete implements provider.Completer for the OpenAI Chat Completions API.
func (c *Completer) Complete(ctx context.Context, req provider.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Params.Temperature > 0 {
		params.Temperature = openai.Float(req.Params.Temperature)
	}
	if req.Params.TopP > 0 {
		params.TopP = openai.Float(req.Params.TopP)
	}
	if req.Params.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Params.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", provider.NewError(provider.KindProviderError, c.name,
			fmt.Errorf("response contained no choices"))
	}

	return resp.Choices[0].Message.Content, nil
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

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return provider.FromStatusCode(c.name, apierr.StatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.NewError(provider.KindTimeout, c.name, err)
	}

	return provider.NewError(provider.KindProviderError, c.name, err)
}
