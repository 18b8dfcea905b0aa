// Package provider defines the uniform capability surface over backend model
// providers together with the fixed error taxonomy the routing layer's
// retry/skip logic relies on. One Completer implementation exists per
// provider family (see the anthropic, openai and ollama subpackages); each
// adapter maps its provider specific error signals onto the taxonomy so that
// fallback handling stays provider-agnostic.
package provider

import "context"

// Params is the generation parameter set carried by a completion request.
// Every field participates in cache fingerprinting, so two requests that
// differ in any parameter are distinct cache entries.
type Params struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float64 `json:"top_p"`
}

// Request is the normalized completion input handed to an adapter.
type Request struct {
	Prompt     string
	Capability string // e.g. "chat", "completion"
	Params     Params
}

// Completer is the capability surface over a single backend model provider.
// Complete blocks until the provider responds, the context is cancelled or
// its deadline passes; it is the only operation in the system expected to
// block on external I/O.
type Completer interface {
	// Complete issues a completion request and returns the response text.
	// Failures are reported as *Error so callers can classify them.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the stable provider identifier used in routing results
	// and failure reports.
	Name() string
}
