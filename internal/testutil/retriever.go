// Package testutil provides scripted collaborator fakes shared by the
// workflow and façade tests.
package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/ragmesh/core"
)

// Retriever is a scripted retrieval collaborator. Errors are consumed one
// per call before canned results are served; grading outcomes are consumed
// in order, repeating the last one when the script runs out. Safe for
// concurrent use.
type Retriever struct {
	mu sync.Mutex

	Docs         []core.Document // returned by RetrieveDocuments
	RetrieveErrs []error         // consumed one per RetrieveDocuments call
	GradeErrs    []error         // consumed one per GradeRelevance call

	// GradeOutcomes scripts the (filtered docs, sufficient) pairs returned
	// by successive GradeRelevance calls. When empty, grading passes the
	// input through as sufficient.
	GradeOutcomes []GradeOutcome

	RetrieveCalls int
	GradeCalls    int
}

// GradeOutcome is one scripted GradeRelevance result.
type GradeOutcome struct {
	Docs       []core.Document
	Sufficient bool
}

// RetrieveDocuments implements retrieval.Retriever.
func (r *Retriever) RetrieveDocuments(ctx context.Context, _ string, topK int) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.RetrieveCalls++

	if len(r.RetrieveErrs) > 0 {
		err := r.RetrieveErrs[0]
		r.RetrieveErrs = r.RetrieveErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	docs := r.Docs
	if topK > 0 && len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// GradeRelevance implements retrieval.Retriever.
func (r *Retriever) GradeRelevance(ctx context.Context, docs []core.Document, _ string) ([]core.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.GradeCalls++

	if len(r.GradeErrs) > 0 {
		err := r.GradeErrs[0]
		r.GradeErrs = r.GradeErrs[1:]
		if err != nil {
			return nil, false, err
		}
	}

	if len(r.GradeOutcomes) == 0 {
		return docs, true, nil
	}

	outcome := r.GradeOutcomes[0]
	if len(r.GradeOutcomes) > 1 {
		r.GradeOutcomes = r.GradeOutcomes[1:]
	}
	return outcome.Docs, outcome.Sufficient, nil
}
