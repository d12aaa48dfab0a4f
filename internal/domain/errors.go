package domain

import "errors"

var (
	// ErrEmptyQuery signals a search request without query text.
	ErrEmptyQuery = errors.New("query text is required")
	// ErrInvalidRequest signals missing or malformed request fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMissingProfileURL signals an enrichment trigger without a profile URL.
	ErrMissingProfileURL = errors.New("linkedin url is required")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorIndexUnavailable signals a vector index query failure.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
	// ErrPipelineUnavailable signals that the enrichment pipeline could not be reached.
	ErrPipelineUnavailable = errors.New("enrichment pipeline unavailable")
)
