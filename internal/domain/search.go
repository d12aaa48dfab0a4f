package domain

// LocationAll disables location filtering.
const LocationAll = "all"

// Query is an immutable search request.
type Query struct {
	Text     string
	Location string
	Page     int
	PageSize int
}

// FiltersLocation reports whether the query restricts results to one location.
func (q Query) FiltersLocation() bool {
	return q.Location != "" && q.Location != LocationAll
}

// Pagination describes the window a response covers.
type Pagination struct {
	Page         int  `json:"page"`
	PageSize     int  `json:"pageSize"`
	TotalResults int  `json:"totalResults"`
	HasMore      bool `json:"hasMore"`
}

// NewPagination computes the pagination block for a page over total filtered results.
func NewPagination(page, pageSize, total int) Pagination {
	return Pagination{
		Page:         page,
		PageSize:     pageSize,
		TotalResults: total,
		HasMore:      (page+1)*pageSize < total,
	}
}

// SearchResponse is the assembled result of one search request. Analysis is
// only populated on the first page; callers carry it forward across pages.
type SearchResponse struct {
	Analysis   string
	Matches    []EnrichedCandidate
	Pagination Pagination
}

// IndexStats describes the vector index backing the search.
type IndexStats struct {
	IndexName  string
	NumDocs    int
	Dimensions int
}
