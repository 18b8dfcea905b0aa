package router

import (
	"fmt"
	"strings"
)

// Failure records one provider's terminal error within a chain traversal.
// For a provider that was retried, Err is the error of the last attempt.
type Failure struct {
	Provider string
	Err      error
}

// ExhaustedError reports that every provider in a chain failed. Failures are
// ordered by chain priority and contain exactly one record per provider
// tried. It is the only provider-level failure surfaced to callers.
type ExhaustedError struct {
	Chain    string
	Failures []Failure
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "routing exhausted: all %d providers in chain %q failed", len(e.Failures), e.Chain)
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "; %s: %v", f.Provider, f.Err)
	}
	return sb.String()
}

// Unwrap exposes the per-provider errors for errors.Is / errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
