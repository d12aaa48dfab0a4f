package search

import (
	"context"

	"github.com/scout-hq/scout/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CandidateIndex runs similarity queries against the external vector index.
type CandidateIndex interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Candidate, error)
}

// Enricher produces natural-language enrichment. Both operations are
// best-effort: the service substitutes fallbacks on failure.
type Enricher interface {
	Summarize(ctx context.Context, c domain.Candidate) (string, error)
	Analyze(ctx context.Context, query string, n int) (string, error)
}
