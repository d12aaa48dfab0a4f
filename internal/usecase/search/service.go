// Package search aggregates vector matches with per-result enrichment and paging.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/logger"
	"github.com/scout-hq/scout/internal/metrics"
)

// Service is the result aggregator: it embeds the query once, over-fetches
// candidates, filters and pages them, and enriches only the visible page.
// Pagination is stateless: every page request re-embeds and re-queries.
type Service struct {
	embed  Embedder
	index  CandidateIndex
	enrich Enricher

	topK            int
	defaultPageSize int
	maxPageSize     int
	enrichTimeout   time.Duration
}

// New creates a search service with default limits.
func New(embed Embedder, index CandidateIndex, enrich Enricher) *Service {
	return &Service{
		embed:           embed,
		index:           index,
		enrich:          enrich,
		topK:            100,
		defaultPageSize: 20,
		maxPageSize:     100,
		enrichTimeout:   5 * time.Second,
	}
}

// WithLimits overrides over-fetch and page size limits.
func (s *Service) WithLimits(topK, defaultPageSize, maxPageSize int) *Service {
	if topK > 0 {
		s.topK = topK
	}
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithEnrichTimeout bounds each per-candidate enrichment call.
func (s *Service) WithEnrichTimeout(d time.Duration) *Service {
	if d > 0 {
		s.enrichTimeout = d
	}
	return s
}

// Search executes one search request end to end.
// Embedding and index failures abort the request; enrichment failures degrade
// individual results without failing the page.
func (s *Service) Search(ctx context.Context, q domain.Query) (domain.SearchResponse, error) {
	if strings.TrimSpace(q.Text) == "" {
		return domain.SearchResponse{}, domain.ErrEmptyQuery
	}
	q = s.normalize(q)

	log := logger.FromContext(ctx)

	emb, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.index.SearchKNN(ctx, emb.Embedding, s.topK)
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	if q.FiltersLocation() {
		before := len(candidates)
		candidates = filterByLocation(candidates, q.Location)
		log.Debug("location filter applied",
			zap.String("location", q.Location),
			zap.Int("before", before),
			zap.Int("after", len(candidates)),
		)
	}

	total := len(candidates)
	analysis := s.analyzeBatch(ctx, q, total)

	page := pageSlice(candidates, q.Page, q.PageSize)
	matches := s.enrichPage(ctx, page)

	return domain.SearchResponse{
		Analysis:   analysis,
		Matches:    matches,
		Pagination: domain.NewPagination(q.Page, q.PageSize, total),
	}, nil
}

func (s *Service) normalize(q domain.Query) domain.Query {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = s.defaultPageSize
	}
	if q.PageSize > s.maxPageSize {
		q.PageSize = s.maxPageSize
	}
	if q.Location == "" {
		q.Location = domain.LocationAll
	}
	return q
}

// analyzeBatch computes the batch analysis text. Only the first page pays for
// a generation call; later pages return empty and the client carries the
// original text forward.
func (s *Service) analyzeBatch(ctx context.Context, q domain.Query, total int) string {
	if total == 0 {
		return fmt.Sprintf("No results found for %q.", q.Text)
	}
	if q.Page != 0 {
		return ""
	}

	tctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	analysis, err := s.enrich.Analyze(tctx, q.Text, total)
	if err != nil {
		metrics.EnrichmentFallbacksTotal.WithLabelValues("analysis").Inc()
		logger.FromContext(ctx).Warn("batch analysis failed, using fallback", zap.Error(err))
		return fmt.Sprintf("Found %d results for %q.", total, q.Text)
	}
	return analysis
}

// enrichPage summarizes every candidate of the page concurrently and joins
// before returning. Output order matches input rank order regardless of
// completion order, and individual failures fall back independently.
func (s *Service) enrichPage(ctx context.Context, page []domain.Candidate) []domain.EnrichedCandidate {
	matches := make([]domain.EnrichedCandidate, len(page))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range page {
		i, c := i, c
		g.Go(func() error {
			matches[i] = s.enrichCandidate(gctx, c)
			return nil
		})
	}
	// Per-candidate errors never propagate, so Wait cannot fail.
	_ = g.Wait()

	return matches
}

func (s *Service) enrichCandidate(ctx context.Context, c domain.Candidate) domain.EnrichedCandidate {
	tctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	summary, err := s.enrich.Summarize(tctx, c)
	if err != nil {
		metrics.EnrichmentFallbacksTotal.WithLabelValues("summary").Inc()
		logger.FromContext(ctx).Warn("summarization failed, using stored summary",
			zap.String("candidate_id", c.ID),
			zap.Error(err),
		)
		summary = c.Attrs.RawSummary
		if summary == "" {
			summary = domain.DefaultSummary
		}
	}

	current, past := domain.SplitRoles(c.Attrs.Companies)

	return domain.EnrichedCandidate{
		Candidate:      c,
		ConciseSummary: summary,
		CurrentRole:    current,
		PastRoles:      past,
	}
}

// filterByLocation keeps candidates whose stored location equals the filter
// exactly. No normalization: the stored data's casing (and its literal "None"
// placeholder) is matched as-is.
func filterByLocation(candidates []domain.Candidate, location string) []domain.Candidate {
	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Attrs.Location == location {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// pageSlice clamps [page*size, (page+1)*size) to the candidate list bounds.
func pageSlice(candidates []domain.Candidate, page, size int) []domain.Candidate {
	start := page * size
	if start >= len(candidates) {
		return nil
	}
	end := start + size
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end]
}
