package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/ragmesh/core"
)

// InMemoryIndex is a naive process-local Retriever. Documents are scored by
// query term overlap (the fraction of query terms appearing in the document,
// case insensitive) and grading keeps documents at or above a threshold.
// Suitable for tests and demos; swap for a vector store backed collaborator
// for production retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryIndex struct {
	mu       sync.RWMutex
	docs     []core.Document
	minScore float64
}

// Compile-time interface assertion.
var _ Retriever = (*InMemoryIndex)(nil)

// IndexOption customizes an InMemoryIndex.
type IndexOption func(*InMemoryIndex)

// WithMinScore sets the grading threshold. Documents scoring below it are
// filtered out; the default is 0.5.
func WithMinScore(min float64) IndexOption {
	return func(idx *InMemoryIndex) { idx.minScore = min }
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex(opts ...IndexOption) *InMemoryIndex {
	idx := &InMemoryIndex{minScore: 0.5}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add appends a document to the index, generating an id when empty.
func (idx *InMemoryIndex) Add(id, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if id == "" {
		id = fmt.Sprintf("doc_%d", len(idx.docs))
	}
	idx.docs = append(idx.docs, core.Document{ID: id, Content: content})
}

// RetrieveDocuments implements Retriever using term overlap scoring.
func (idx *InMemoryIndex) RetrieveDocuments(ctx context.Context, query string, topK int) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))

	idx.mu.RLock()
	results := make([]core.Document, 0, len(idx.docs))
	for _, doc := range idx.docs {
		score := overlapScore(strings.ToLower(doc.Content), terms)
		if score > 0 {
			scored := doc
			scored.Score = score
			results = append(results, scored)
		}
	}
	idx.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// GradeRelevance implements Retriever: the filtered set keeps documents at
// or above the threshold, and the set is sufficient when non-empty.
func (idx *InMemoryIndex) GradeRelevance(ctx context.Context, docs []core.Document, _ string) ([]core.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	idx.mu.RLock()
	min := idx.minScore
	idx.mu.RUnlock()

	filtered := make([]core.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Score >= min {
			filtered = append(filtered, doc)
		}
	}

	return filtered, len(filtered) > 0, nil
}

// overlapScore returns the fraction of query terms contained in content.
func overlapScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(content, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
