// Package health aggregates component health checks and index diagnostics.
package health

import (
	"context"
	"fmt"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DebugInfo describes the live state of the vector index connection.
type DebugInfo struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	IndexName   string `json:"indexName"`
	VectorCount int    `json:"vectorCount"`
	Dimensions  int    `json:"dimensions"`
}

// Service coordinates health checks.
type Service struct {
	index     IndexPinger
	embedding EmbeddingChecker
	inspector IndexInspector
}

// New creates a Service. embedding and inspector can be nil.
func New(index IndexPinger, embedding EmbeddingChecker, inspector IndexInspector) *Service {
	return &Service{index: index, embedding: embedding, inspector: inspector}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.index.Ping(ctx); err != nil {
		checks["index"] = CheckError
	} else {
		checks["index"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

// Debug probes the vector index and reports its live statistics.
func (s *Service) Debug(ctx context.Context) (DebugInfo, error) {
	stats, err := s.inspector.IndexStats(ctx)
	if err != nil {
		return DebugInfo{}, fmt.Errorf("inspect index: %w", err)
	}

	return DebugInfo{
		Status:      "success",
		Message:     "Vector index connection successful",
		IndexName:   stats.IndexName,
		VectorCount: stats.NumDocs,
		Dimensions:  stats.Dimensions,
	}, nil
}
