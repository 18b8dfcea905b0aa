package ragmesh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/ragmesh/config"
	"github.com/hupe1980/ragmesh/core"
	"github.com/hupe1980/ragmesh/provider"
	"github.com/hupe1980/ragmesh/retrieval"
	"github.com/hupe1980/ragmesh/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: []config.ProviderConfig{
			{Name: "m", Type: "mock"},
		},
		Chains: []config.ChainConfig{
			{Name: "main", Providers: []string{"m"}},
		},
		Routing: config.RoutingConfig{DefaultChain: "main"},
	}
}

func testRetriever() *retrieval.InMemoryIndex {
	idx := retrieval.NewInMemoryIndex(retrieval.WithMinScore(0.1))
	idx.Add("go", "Go was first released in November 2009.")
	idx.Add("rust", "Rust reached 1.0 in May 2015.")
	return idx
}

func TestNewValidatesInputs(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil, testRetriever())
		assert.Error(t, err)
	})

	t.Run("nil retriever", func(t *testing.T) {
		_, err := New(testConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Routing.DefaultChain = "ghost"
		_, err := New(cfg, testRetriever())
		assert.Error(t, err)
	})
}

func TestRunAgent(t *testing.T) {
	mesh, err := New(testConfig(), testRetriever())
	require.NoError(t, err)

	response, err := mesh.RunAgent(context.Background(), "When was Go released?", nil)
	require.NoError(t, err)

	// The mock adapter echoes its prompt, which must contain the retrieved
	// context and the query.
	assert.Contains(t, response, "November 2009")
	assert.Contains(t, response, "When was Go released?")
}

func TestRunExposesRunState(t *testing.T) {
	mesh, err := New(testConfig(), testRetriever())
	require.NoError(t, err)

	state, err := mesh.Run(context.Background(), "When was Go released?", []core.Message{
		{Role: "user", Content: "we were talking about languages"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, []string{"retrieve", "grade", "generate"}, state.StepHistory)
	assert.NotEmpty(t, state.Response)
}

func TestRunUsesResponseCache(t *testing.T) {
	mock := provider.NewMockCompleter("m")
	mesh, err := New(testConfig(), testRetriever(), func(o *Options) {
		o.Completers = map[string]provider.Completer{"m": mock}
	})
	require.NoError(t, err)

	_, err = mesh.RunAgent(context.Background(), "When was Go released?", nil)
	require.NoError(t, err)
	require.Equal(t, 1, mock.Calls())

	_, err = mesh.RunAgent(context.Background(), "When was Go released?", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls(), "the repeated query must be served from the cache")
}

func TestRunFallsBackAcrossProviders(t *testing.T) {
	cfg := testConfig()
	cfg.Providers = []config.ProviderConfig{
		{Name: "primary", Type: "mock"},
		{Name: "backup", Type: "mock"},
	}
	cfg.Chains = []config.ChainConfig{
		{Name: "main", Providers: []string{"primary", "backup"}},
	}

	primary := provider.NewMockCompleter("primary")
	primary.FailWith(provider.NewError(provider.KindAuthError, "primary", assert.AnError))
	backup := provider.NewMockCompleter("backup")

	mesh, err := New(cfg, testRetriever(), func(o *Options) {
		o.Completers = map[string]provider.Completer{"primary": primary, "backup": backup}
	})
	require.NoError(t, err)

	response, err := mesh.RunAgent(context.Background(), "When was Go released?", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, response)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, backup.Calls())
}

func TestCancelUnknownRun(t *testing.T) {
	mesh, err := New(testConfig(), testRetriever())
	require.NoError(t, err)

	err = mesh.Cancel("no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-run")
}

func TestConcurrentRunLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.MaxConcurrentRuns = 1

	// A retriever that blocks until released, holding the run slot occupied.
	release := make(chan struct{})
	blocking := &blockingRetriever{
		started: make(chan struct{}),
		release: release,
	}

	mesh, err := New(cfg, blocking)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = mesh.RunAgent(context.Background(), "slow query", nil)
	}()

	<-blocking.started

	_, err = mesh.RunAgent(context.Background(), "second query", nil)
	assert.Error(t, err, "the second run must be rejected while the slot is held")

	close(release)
	wg.Wait()
}

func TestRouterAccessorSupportsReconfigure(t *testing.T) {
	mesh, err := New(testConfig(), testRetriever())
	require.NoError(t, err)

	replacement := provider.NewMockCompleter("replacement")
	replacement.AddResponse("direct", "swapped in")

	chain, err := router.NewChain("main", 0, router.Spec{Completer: replacement})
	require.NoError(t, err)

	err = mesh.Router().Reconfigure(&router.Table{
		Policy: router.Policy{DefaultChain: "main"},
		Chains: map[string]*router.Chain{"main": chain},
	})
	require.NoError(t, err)

	result, err := mesh.Router().Route(context.Background(), router.Request{Prompt: "direct", Capability: "chat"})
	require.NoError(t, err)
	assert.Equal(t, "swapped in", result.Text)
	assert.Equal(t, "replacement", result.Provider)
}

// blockingRetriever parks RetrieveDocuments until released, signalling once
// the first call has started.
type blockingRetriever struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingRetriever) RetrieveDocuments(ctx context.Context, _ string, _ int) ([]core.Document, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
	}
	return []core.Document{{ID: "d", Content: "doc", Score: 0.9}}, nil
}

func (b *blockingRetriever) GradeRelevance(_ context.Context, docs []core.Document, _ string) ([]core.Document, bool, error) {
	return docs, true, nil
}
