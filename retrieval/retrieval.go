// Package retrieval defines the narrow contract to the document retrieval
// collaborator consumed by the workflow's retrieve and grade steps, plus a
// process-local reference implementation. Ingestion, chunking, embedding and
// vector-store similarity search live behind this interface and are not part
// of this module.
package retrieval

import (
	"context"

	"github.com/hupe1980/ragmesh/core"
)

// Retriever is implemented by the retrieval collaborator.
type Retriever interface {
	// RetrieveDocuments returns up to topK candidate documents for the
	// query, ordered by descending relevance score.
	RetrieveDocuments(ctx context.Context, query string, topK int) ([]core.Document, error)

	// GradeRelevance filters the candidates down to the subset considered
	// relevant to the query and reports whether that subset is sufficient
	// to answer it. The workflow engine uses the sufficiency signal for its
	// bounded retrieve loop-back.
	GradeRelevance(ctx context.Context, docs []core.Document, query string) ([]core.Document, bool, error)
}
