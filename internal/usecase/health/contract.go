package health

import (
	"context"

	"github.com/scout-hq/scout/internal/domain"
)

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexInspector reads vector index statistics.
type IndexInspector interface {
	IndexStats(ctx context.Context) (domain.IndexStats, error)
}
