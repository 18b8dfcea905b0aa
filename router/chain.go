package router

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/ragmesh/provider"
)

const maxBackoffDelay = 30 * time.Second

// Spec binds a provider adapter to its behavior within a chain: the per-call
// timeout, the retry budget for transient failures and the capabilities the
// provider is allowed to serve. Specs are loaded once at startup and treated
// as immutable afterwards.
type Spec struct {
	Completer    provider.Completer
	Capabilities []string      // empty = all capabilities
	Timeout      time.Duration // per-call timeout, 0 = inherit caller deadline
	MaxRetries   int           // additional attempts after the first, transient failures only
	RetryDelay   time.Duration // base backoff delay, doubled per attempt
}

// Supports reports whether the spec may serve the capability.
func (s Spec) Supports(capability string) bool {
	if len(s.Capabilities) == 0 {
		return true
	}
	for _, c := range s.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Chain is an ordered list of provider specs for one logical routing target,
// tried in priority order until one succeeds or the chain is exhausted.
type Chain struct {
	name           string
	specs          []Spec
	overallTimeout time.Duration
}

// NewChain constructs a chain. The spec list must be non-empty and free of
// duplicate provider identifiers. overallTimeout caps a whole traversal
// (zero means the caller's deadline alone bounds it).
func NewChain(name string, overallTimeout time.Duration, specs ...Spec) (*Chain, error) {
	if name == "" {
		return nil, fmt.Errorf("chain name cannot be empty")
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("chain %q must contain at least one provider", name)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Completer == nil {
			return nil, fmt.Errorf("chain %q contains a nil provider", name)
		}
		id := spec.Completer.Name()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("chain %q contains duplicate provider %q", name, id)
		}
		seen[id] = struct{}{}
	}

	return &Chain{name: name, specs: specs, overallTimeout: overallTimeout}, nil
}

// Name returns the chain's configured name.
func (c *Chain) Name() string { return c.name }

// Execute tries each provider in priority order and returns the first
// successful result, short-circuiting the remaining providers. Transient
// failures are retried on the same provider up to its retry budget with
// bounded backoff; permanent failures skip straight to the next provider.
// When every provider fails, the returned error is an *ExhaustedError
// carrying one failure record per provider, in chain order. Caller
// cancellation aborts the traversal immediately.
func (c *Chain) Execute(ctx context.Context, req Request) (Result, error) {
	if c.overallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.overallTimeout)
		defer cancel()
	}

	start := time.Now()
	failures := make([]Failure, 0, len(c.specs))

	for _, spec := range c.specs {
		text, err := c.tryProvider(ctx, spec, req)
		if err == nil {
			return Result{
				Text:     text,
				Provider: spec.Completer.Name(),
				Latency:  time.Since(start),
			}, nil
		}

		failures = append(failures, Failure{Provider: spec.Completer.Name(), Err: err})

		if ctx.Err() != nil {
			// The overall deadline passed or the caller cancelled; trying
			// further providers would fail the same way.
			break
		}
	}

	return Result{}, &ExhaustedError{Chain: c.name, Failures: failures}
}

// tryProvider invokes one provider with its configured timeout, retrying
// transient failures up to the spec's budget.
func (c *Chain) tryProvider(ctx context.Context, spec Spec, req Request) (string, error) {
	name := spec.Completer.Name()

	if !spec.Supports(req.Capability) {
		return "", provider.NewError(provider.KindUnsupportedCapability, name,
			fmt.Errorf("capability %q not offered", req.Capability))
	}

	preq := provider.Request{
		Prompt:     req.Prompt,
		Capability: req.Capability,
		Params:     req.Params,
	}

	var lastErr error
	for attempt := 0; attempt <= spec.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoffDelay(spec.RetryDelay, attempt)); err != nil {
				return "", lastErr
			}
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if spec.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		}

		text, err := spec.Completer.Complete(callCtx, preq)
		cancel()

		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", lastErr
		}
		if !provider.IsTransient(err) {
			return "", lastErr
		}
	}

	return "", lastErr
}

// backoffDelay doubles the base delay per attempt, capped at maxBackoffDelay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << (attempt - 1)
	if delay > maxBackoffDelay || delay <= 0 {
		return maxBackoffDelay
	}
	return delay
}

// sleep waits for d or until the context is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
