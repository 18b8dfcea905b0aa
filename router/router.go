// Package router decides which backend provider answers a completion
// request. A data-driven policy selects a fallback chain per request, the
// response cache is consulted first, and on a miss the chain is executed
// with per-provider retries and the result written back to the cache.
//
// Routing tables (policy + chains) are process-wide configuration loaded
// once at startup; Reconfigure swaps the whole table atomically so a change
// is only ever visible to new requests, never partially applied mid-request.
package router

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/ragmesh/cache"
	"github.com/hupe1980/ragmesh/logging"
	"github.com/hupe1980/ragmesh/provider"
)

// Request is the immutable input to a routing attempt.
type Request struct {
	Prompt     string
	Capability string          // target capability, e.g. "chat"
	Provider   string          // optional explicit provider hint consumed by policy rules
	Params     provider.Params // generation parameter set
}

// Result is the immutable outcome of a routing attempt.
type Result struct {
	Text     string
	Provider string // identifier of the provider that served the response
	CacheHit bool
	Latency  time.Duration
}

// Table is a complete routing configuration: the selection policy plus the
// chain definitions it refers to. Tables are immutable once installed.
type Table struct {
	Policy Policy
	Chains map[string]*Chain
}

// validate checks that every chain referenced by the policy exists.
func (t *Table) validate() error {
	if t.Policy.DefaultChain == "" {
		return fmt.Errorf("routing table needs a default chain")
	}
	if _, ok := t.Chains[t.Policy.DefaultChain]; !ok {
		return fmt.Errorf("default chain %q is not defined", t.Policy.DefaultChain)
	}
	for i, rule := range t.Policy.Rules {
		if _, ok := t.Chains[rule.Chain]; !ok {
			return fmt.Errorf("rule %d references undefined chain %q", i, rule.Chain)
		}
	}
	return nil
}

// Options configures a Router.
type Options struct {
	// Cache short-circuits routing for repeated requests. Nil disables caching.
	Cache *cache.ResponseCache
	// Logger receives routing diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Router selects and executes a fallback chain per request, consulting the
// response cache first. Safe for concurrent use.
type Router struct {
	table  atomic.Pointer[Table]
	cache  *cache.ResponseCache
	logger logging.Logger
}

// New constructs a Router over an initial routing table.
func New(table *Table, optFns ...func(o *Options)) (*Router, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Router{
		cache:  opts.Cache,
		logger: opts.Logger,
	}
	if err := r.Reconfigure(table); err != nil {
		return nil, err
	}

	return r, nil
}

// Reconfigure atomically replaces the routing table. In-flight requests keep
// using the table they started with.
func (r *Router) Reconfigure(table *Table) error {
	if table == nil {
		return fmt.Errorf("routing table cannot be nil")
	}
	if err := table.validate(); err != nil {
		return err
	}
	r.table.Store(table)
	return nil
}

// Route resolves a request to a result. On a cache hit no provider is
// invoked. On a miss the selected chain runs and a successful result is
// written back to the cache; concurrent routes for the same fingerprint may
// both reach the providers (duplicate work is accepted, the later write
// simply replaces the earlier). It fails with *ExhaustedError only when
// every provider in the selected chain has failed.
func (r *Router) Route(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	table := r.table.Load()

	chainName := table.Policy.Select(req)
	chain, ok := table.Chains[chainName]
	if !ok {
		return Result{}, fmt.Errorf("policy selected undefined chain %q", chainName)
	}

	fingerprint := cache.Fingerprint(cache.Key{
		Capability: req.Capability,
		Provider:   req.Provider,
		Prompt:     req.Prompt,
		Params:     req.Params,
	})

	if r.cache != nil {
		entry, hit, err := r.cache.Get(ctx, fingerprint)
		if err != nil {
			// A broken cache is a forced miss, never fatal.
			r.logger.Warn("cache read failed, routing without cache", "error", err)
		}
		if hit {
			r.logger.Debug("cache hit", "chain", chainName, "provider", entry.Provider)
			return Result{
				Text:     entry.Text,
				Provider: entry.Provider,
				CacheHit: true,
				Latency:  time.Since(start),
			}, nil
		}
	}

	result, err := chain.Execute(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if r.cache != nil {
		put := cache.Entry{Text: result.Text, Provider: result.Provider}
		if err := r.cache.Put(ctx, fingerprint, put); err != nil {
			r.logger.Warn("cache write failed", "error", err)
		}
	}

	r.logger.Debug("routed", "chain", chainName, "provider", result.Provider, "latency", result.Latency)

	return result, nil
}
