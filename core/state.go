package core

// RunState is the mutable per-run context threaded through the workflow's
// steps. It is owned by exactly one run; the engine never shares a RunState
// across concurrent runs, so no locking is required.
//
// StepHistory records every executed step name in order (a step repeated by
// a loop-back appears once per execution) and exists for diagnostics and
// loop prevention. GradeLoops counts how often grading has sent the run back
// to retrieval; the engine uses it to enforce the loop bound.
type RunState struct {
	RunID       string     `json:"run_id"`
	Query       string     `json:"query"`
	Messages    []Message  `json:"messages"`
	Documents   []Document `json:"documents"`
	Response    string     `json:"response"`
	StepHistory []string   `json:"step_history"`
	GradeLoops  int        `json:"grade_loops"`
}

// NewRunState creates a fresh run state for a query. The messages slice is
// copied so later mutation by the caller cannot leak into the run.
func NewRunState(query string, messages []Message) *RunState {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return &RunState{
		RunID:    NewID(),
		Query:    query,
		Messages: msgs,
	}
}

// RecordStep appends an executed step name to the history.
func (s *RunState) RecordStep(name string) {
	s.StepHistory = append(s.StepHistory, name)
}

// TrimMessages drops the oldest messages so that at most max remain.
// A max of zero or less disables trimming.
func (s *RunState) TrimMessages(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	s.Messages = s.Messages[len(s.Messages)-max:]
}
