// Package ragmesh provides a high-level façade over the workflow engine and
// the model routing layer, enabling retrieval-augmented agent runs against a
// set of configured backend model providers. Most applications interact with
// this package by:
//  1. Loading a configuration document (config.Load) describing providers,
//     fallback chains, the routing policy, cache settings and workflow bounds
//  2. Creating a Mesh via New() with a retrieval collaborator
//  3. Running queries synchronously through RunAgent
//
// The façade wires configuration into provider adapters, fallback chains,
// the response cache and the workflow engine while keeping setup ergonomics
// concise. All defaults are safe for local development and testing;
// production deployments typically point the cache at a shared Redis and
// supply a structured logger.
package ragmesh

import (
	"context"
	"fmt"
	"sync"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/ragmesh/cache"
	redisstore "github.com/hupe1980/ragmesh/cache/redis"
	"github.com/hupe1980/ragmesh/config"
	"github.com/hupe1980/ragmesh/core"
	"github.com/hupe1980/ragmesh/logging"
	"github.com/hupe1980/ragmesh/provider"
	"github.com/hupe1980/ragmesh/provider/anthropic"
	"github.com/hupe1980/ragmesh/provider/ollama"
	"github.com/hupe1980/ragmesh/provider/openai"
	"github.com/hupe1980/ragmesh/retrieval"
	"github.com/hupe1980/ragmesh/router"
	"github.com/hupe1980/ragmesh/workflow"
)

// Options configures the Mesh instance.
type Options struct {
	// Logger used across all components. Defaults to a structured logger
	// built from the configuration's logging section.
	Logger logging.Logger

	// CacheStore overrides the store backing the response cache. When nil,
	// the configuration decides: a Redis store when an address is set,
	// otherwise the process-local in-memory store.
	CacheStore cache.Store

	// Completers overrides adapters for configured provider names, keyed by
	// name. Useful for tests and for provider families not built in.
	Completers map[string]provider.Completer
}

// Mesh is the high-level façade aggregating the router, cache and workflow
// engine. Public methods are safe for concurrent use.
type Mesh struct {
	cfg     *config.Config
	router  *router.Router
	engine  *workflow.Engine
	limiter *core.RunLimiter
	logger  logging.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates a Mesh from a validated configuration and a retrieval
// collaborator.
func New(cfg *config.Config, retriever retrieval.Retriever, optFns ...func(o *Options)) (*Mesh, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(&logging.Config{
			Level:  logging.ParseLevel(cfg.Logging.Level),
			Format: cfg.Logging.Format,
		})
	}

	completers, err := buildCompleters(cfg, opts.Completers)
	if err != nil {
		return nil, err
	}

	table, err := buildTable(cfg, completers)
	if err != nil {
		return nil, err
	}

	var responseCache *cache.ResponseCache
	if cfg.Cache.IsEnabled() {
		store := opts.CacheStore
		if store == nil {
			store = buildStore(cfg.Cache)
		}
		responseCache = cache.New(store, time.Duration(cfg.Cache.TTL)*time.Second,
			func(o *cache.Options) { o.Logger = logger })
	}

	r, err := router.New(table, func(o *router.Options) {
		o.Cache = responseCache
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	engine := workflow.New(retriever, r, func(o *workflow.Options) {
		o.MaxGradeLoops = cfg.Workflow.MaxGradeLoops
		o.TopK = cfg.Workflow.TopK
		o.MaxMessages = cfg.Workflow.MaxMessages
		o.Capability = cfg.Workflow.Capability
		o.Params = provider.Params{
			Temperature: cfg.Workflow.Temperature,
			MaxTokens:   cfg.Workflow.MaxTokens,
		}
		if cfg.Workflow.PromptTemplate != "" {
			o.PromptTemplate = cfg.Workflow.PromptTemplate
		}
		o.Logger = logger
	})

	return &Mesh{
		cfg:     cfg,
		router:  r,
		engine:  engine,
		limiter: core.NewRunLimiter(cfg.Workflow.MaxConcurrentRuns),
		logger:  logger,
		active:  make(map[string]context.CancelFunc),
	}, nil
}

// RunAgent executes one workflow run for the query and returns the final
// response text. Synchronous from the caller's perspective; routing, fallback
// and caching stay fully hidden. On failure no partial response is returned.
func (m *Mesh) RunAgent(ctx context.Context, query string, messages []core.Message) (string, error) {
	state, err := m.Run(ctx, query, messages)
	if err != nil {
		return "", err
	}
	return state.Response, nil
}

// Run is the richer variant of RunAgent exposing the terminal run state
// (response, step history, grade loop count) for observability.
func (m *Mesh) Run(ctx context.Context, query string, messages []core.Message) (*core.RunState, error) {
	if err := m.limiter.Acquire(); err != nil {
		return nil, err
	}
	defer m.limiter.Release()

	state := core.NewRunState(query, messages)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.track(state.RunID, cancel)
	defer m.untrack(state.RunID)

	if _, err := m.engine.Run(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Cancel requests cooperative termination of an in-flight run. It is
// idempotent; cancelling an unknown or already finished run returns an error
// describing the condition.
func (m *Mesh) Cancel(runID string) error {
	m.mu.Lock()
	cancel, ok := m.active[runID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no active run with id %q", runID)
	}
	cancel()

	return nil
}

// Router exposes the underlying model router, e.g. for atomic routing table
// swaps via Reconfigure or for direct completion requests bypassing the
// workflow.
func (m *Mesh) Router() *router.Router { return m.router }

func (m *Mesh) track(runID string, cancel context.CancelFunc) {
	m.mu.Lock()
	m.active[runID] = cancel
	m.mu.Unlock()
}

func (m *Mesh) untrack(runID string) {
	m.mu.Lock()
	delete(m.active, runID)
	m.mu.Unlock()
}

// buildCompleters constructs one adapter per configured provider, honoring
// caller-supplied overrides.
func buildCompleters(cfg *config.Config, overrides map[string]provider.Completer) (map[string]provider.Completer, error) {
	completers := make(map[string]provider.Completer, len(cfg.Providers))

	for _, pc := range cfg.Providers {
		if c, ok := overrides[pc.Name]; ok {
			completers[pc.Name] = c
			continue
		}

		c, err := buildCompleter(pc)
		if err != nil {
			return nil, err
		}
		completers[pc.Name] = c
	}

	return completers, nil
}

func buildCompleter(pc config.ProviderConfig) (provider.Completer, error) {
	switch pc.Type {
	case "anthropic":
		return anthropic.New(pc.Name, func(o *anthropic.Options) {
			if pc.Model != "" {
				o.Model = anthropicsdk.Model(pc.Model)
			}
			o.APIKey = pc.APIKey
			o.BaseURL = pc.Host
		}), nil
	case "openai":
		return openai.New(pc.Name, func(o *openai.Options) {
			if pc.Model != "" {
				o.Model = pc.Model
			}
			o.APIKey = pc.APIKey
			o.BaseURL = pc.Host
		}), nil
	case "ollama":
		return ollama.New(pc.Name, func(o *ollama.Options) {
			if pc.Model != "" {
				o.Model = pc.Model
			}
			if pc.Host != "" {
				o.Host = pc.Host
			}
		}), nil
	case "mock":
		return provider.NewMockCompleter(pc.Name), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", pc.Type)
	}
}

// buildTable assembles the routing table from the chain and policy sections.
func buildTable(cfg *config.Config, completers map[string]provider.Completer) (*router.Table, error) {
	specs := make(map[string]config.ProviderConfig, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		specs[pc.Name] = pc
	}

	chains := make(map[string]*router.Chain, len(cfg.Chains))
	for _, cc := range cfg.Chains {
		chainSpecs := make([]router.Spec, 0, len(cc.Providers))
		for _, name := range cc.Providers {
			pc := specs[name]
			chainSpecs = append(chainSpecs, router.Spec{
				Completer:    completers[name],
				Capabilities: pc.Capabilities,
				Timeout:      time.Duration(pc.Timeout) * time.Second,
				MaxRetries:   pc.MaxRetries,
				RetryDelay:   time.Duration(pc.RetryDelay) * time.Second,
			})
		}

		chain, err := router.NewChain(cc.Name, time.Duration(cc.Timeout)*time.Second, chainSpecs...)
		if err != nil {
			return nil, err
		}
		chains[cc.Name] = chain
	}

	rules := make([]router.Rule, 0, len(cfg.Routing.Rules))
	for _, rc := range cfg.Routing.Rules {
		rules = append(rules, router.Rule{
			Capability:   rc.Capability,
			Provider:     rc.Provider,
			MinPromptLen: rc.MinPromptLen,
			MaxPromptLen: rc.MaxPromptLen,
			Chain:        rc.Chain,
		})
	}

	return &router.Table{
		Policy: router.Policy{Rules: rules, DefaultChain: cfg.Routing.DefaultChain},
		Chains: chains,
	}, nil
}

// buildStore picks the cache store implied by the configuration.
func buildStore(cc config.CacheConfig) cache.Store {
	if cc.Redis.Addr == "" {
		return cache.NewInMemoryStore()
	}

	var opts []redisstore.Option
	if cc.Redis.Prefix != "" {
		opts = append(opts, redisstore.WithPrefix(cc.Redis.Prefix))
	}
	return redisstore.New(cc.Redis.Addr, cc.Redis.Password, cc.Redis.DB, opts...)
}
