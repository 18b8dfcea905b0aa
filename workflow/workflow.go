// Package workflow implements the run state machine sequencing the retrieve,
// grade and generate steps over a mutable RunState until a terminal state.
//
// The machine is StateRetrieve → StateGrade → StateGenerate → StateDone with
// StateFailed as the error terminal. Grading may send a run back to
// retrieval when the surviving context is insufficient, at most MaxGradeLoops
// times; after that the run proceeds to generation with whatever context is
// available rather than failing. The iteration counter lives in RunState so
// the bound is observable and testable.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/ragmesh/core"
	"github.com/hupe1980/ragmesh/internal/util"
	"github.com/hupe1980/ragmesh/logging"
	"github.com/hupe1980/ragmesh/provider"
	"github.com/hupe1980/ragmesh/retrieval"
	"github.com/hupe1980/ragmesh/router"
)

// State labels a workflow state machine node.
type State string

const (
	// StateRetrieve fetches candidate documents for the query.
	StateRetrieve State = "retrieve"
	// StateGrade filters the candidates and decides on a loop-back.
	StateGrade State = "grade"
	// StateGenerate produces the response through the model router.
	StateGenerate State = "generate"
	// StateDone is the success terminal; the run yields RunState.Response.
	StateDone State = "done"
	// StateFailed is the error terminal; no partial state is returned.
	StateFailed State = "failed"
)

// ErrRetrieval marks an unrecoverable retrieval collaborator failure. It is
// surfaced to the caller after the engine's single retry has also failed.
var ErrRetrieval = errors.New("retrieval failed")

// DefaultPromptTemplate composes the model prompt from the graded context,
// the trimmed conversation history and the query.
const DefaultPromptTemplate = `{{if .Context}}Use the following context to answer.

{{.Context}}

{{end}}{{if .History}}{{.History}}

{{end}}user: {{.Query}}`

// Handler executes one workflow step against the current run state and
// returns the next state label.
type Handler func(ctx context.Context, state *core.RunState) (State, error)

// Options configures an Engine.
type Options struct {
	// MaxGradeLoops bounds the grade → retrieve loop-back per run.
	MaxGradeLoops int
	// TopK is the number of candidate documents requested per retrieval.
	TopK int
	// MaxMessages bounds the conversation history used for prompt building.
	// Zero disables trimming.
	MaxMessages int
	// Capability is the routing capability declared by generation requests.
	Capability string
	// Params is the generation parameter set forwarded to the router.
	Params provider.Params
	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string
	// Logger receives step diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Engine is the state machine executor. One Engine serves many concurrent
// runs; all per-run mutable data lives in the RunState.
type Engine struct {
	retriever retrieval.Retriever
	router    *router.Router
	handlers  map[State]Handler
	opts      Options
}

// New constructs an Engine over the retrieval collaborator and model router.
func New(retriever retrieval.Retriever, r *router.Router, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxGradeLoops:  2,
		TopK:           5,
		MaxMessages:    50,
		Capability:     "chat",
		PromptTemplate: DefaultPromptTemplate,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		retriever: retriever,
		router:    r,
		opts:      opts,
	}
	e.handlers = map[State]Handler{
		StateRetrieve: e.retrieveStep,
		StateGrade:    e.gradeStep,
		StateGenerate: e.generateStep,
	}

	return e
}

// Run drives the state machine from StateRetrieve to a terminal state,
// returning the state it terminated in. On StateFailed the run state's
// response is cleared so no partial output can leak to the caller.
// Cancellation of ctx propagates into the active step and any in-flight
// provider call.
func (e *Engine) Run(ctx context.Context, state *core.RunState) (State, error) {
	current := StateRetrieve
	start := time.Now()

	for current != StateDone {
		if err := ctx.Err(); err != nil {
			state.Response = ""
			return StateFailed, err
		}

		handler, ok := e.handlers[current]
		if !ok {
			state.Response = ""
			return StateFailed, fmt.Errorf("no handler bound for state %q", current)
		}

		state.RecordStep(string(current))
		e.opts.Logger.Debug("executing step", "run_id", state.RunID, "step", current)

		next, err := handler(ctx, state)
		if err != nil {
			state.Response = ""
			logging.LogRun(e.opts.Logger, state.RunID, len(state.StepHistory), time.Since(start), err)
			return StateFailed, err
		}
		current = next
	}

	logging.LogRun(e.opts.Logger, state.RunID, len(state.StepHistory), time.Since(start), nil)

	return StateDone, nil
}

// retrieveStep fetches candidate documents, retrying the collaborator once.
func (e *Engine) retrieveStep(ctx context.Context, state *core.RunState) (State, error) {
	docs, err := e.retriever.RetrieveDocuments(ctx, state.Query, e.opts.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return StateFailed, err
		}
		e.opts.Logger.Warn("retrieval failed, retrying once", "run_id", state.RunID, "error", err)
		docs, err = e.retriever.RetrieveDocuments(ctx, state.Query, e.opts.TopK)
		if err != nil {
			return StateFailed, fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
	}

	state.Documents = docs

	return StateGrade, nil
}

// gradeStep filters the retrieved documents and decides whether to loop back
// to retrieval. The loop-back is taken at most MaxGradeLoops times; after
// that the run degrades gracefully into generation with whatever context
// survived grading.
func (e *Engine) gradeStep(ctx context.Context, state *core.RunState) (State, error) {
	docs, sufficient, err := e.retriever.GradeRelevance(ctx, state.Documents, state.Query)
	if err != nil {
		if ctx.Err() != nil {
			return StateFailed, err
		}
		e.opts.Logger.Warn("grading failed, retrying once", "run_id", state.RunID, "error", err)
		docs, sufficient, err = e.retriever.GradeRelevance(ctx, state.Documents, state.Query)
		if err != nil {
			return StateFailed, fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
	}

	state.Documents = docs

	if !sufficient && state.GradeLoops < e.opts.MaxGradeLoops {
		state.GradeLoops++
		e.opts.Logger.Debug("context insufficient, looping back to retrieval",
			"run_id", state.RunID, "loop", state.GradeLoops)
		return StateRetrieve, nil
	}

	return StateGenerate, nil
}

// generateStep builds the routing request and sets the response on success.
func (e *Engine) generateStep(ctx context.Context, state *core.RunState) (State, error) {
	prompt, err := e.buildPrompt(state)
	if err != nil {
		return StateFailed, fmt.Errorf("failed to build prompt: %w", err)
	}

	result, err := e.router.Route(ctx, router.Request{
		Prompt:     prompt,
		Capability: e.opts.Capability,
		Params:     e.opts.Params,
	})
	logging.LogModelCall(e.opts.Logger, result.Provider, result.Latency, result.CacheHit, err)
	if err != nil {
		return StateFailed, err
	}

	state.Response = result.Text
	state.Messages = append(state.Messages, core.Message{Role: "assistant", Content: result.Text})

	return StateDone, nil
}

// buildPrompt renders the prompt template over the query, the trimmed
// conversation history and the graded documents.
func (e *Engine) buildPrompt(state *core.RunState) (string, error) {
	state.TrimMessages(e.opts.MaxMessages)

	history := make([]string, 0, len(state.Messages))
	for _, msg := range state.Messages {
		history = append(history, msg.Role+": "+msg.Content)
	}

	contexts := make([]string, 0, len(state.Documents))
	for _, doc := range state.Documents {
		contexts = append(contexts, doc.Content)
	}

	return util.RenderTemplate(e.opts.PromptTemplate, map[string]any{
		"Query":   state.Query,
		"History": joinNonEmpty(history, "\n"),
		"Context": joinNonEmpty(contexts, "\n\n"),
	})
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
