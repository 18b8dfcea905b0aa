package core

import (
	"fmt"
	"sync"
)

// RunLimiter bounds the number of workflow runs executing at once.
type RunLimiter struct {
	max    int
	active int
	mu     sync.Mutex
}

// NewRunLimiter creates a limiter allowing up to max concurrent runs.
// If max == 0, an unlimited number of runs is allowed.
func NewRunLimiter(max int) *RunLimiter {
	return &RunLimiter{max: max}
}

// Acquire reserves a run slot and returns an error when the limit is reached.
// Every successful Acquire must be paired with a Release.
func (rl *RunLimiter) Acquire() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.max > 0 && rl.active >= rl.max {
		return fmt.Errorf("exceeded max concurrent runs: %d", rl.max)
	}
	rl.active++

	return nil
}

// Release frees a previously acquired run slot.
func (rl *RunLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.active > 0 {
		rl.active--
	}
}

// Active returns the number of runs currently holding a slot.
func (rl *RunLimiter) Active() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.active
}
