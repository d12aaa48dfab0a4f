package domain

import "strings"

// roleDelimiter separates entries in the stored career-history string.
const roleDelimiter = ", "

// DefaultRole is used when a profile carries no career history.
const DefaultRole = "Professional"

// DefaultSummary is used when summarization fails and the profile has no stored summary.
const DefaultSummary = "Professional with expertise in their field."

// Attributes holds the profile fields stored alongside each vector.
type Attributes struct {
	FullName       string `json:"full_name"`
	Headline       string `json:"headline"`
	CurrentCompany string `json:"current_company"`
	Location       string `json:"location"`
	RawSummary     string `json:"ai_summary"`
	Companies      string `json:"companies"`
}

// Candidate is a raw profile record returned by the vector index.
// Score is a cosine-similarity-derived relevance value in [0,1].
type Candidate struct {
	ID    string
	Score float64
	Attrs Attributes
}

// EnrichedCandidate is a Candidate augmented with generated and derived fields.
type EnrichedCandidate struct {
	Candidate
	ConciseSummary string
	CurrentRole    string
	PastRoles      []string
}

// SplitRoles derives the current and past roles from the comma-separated
// career-history string. The first segment is the current role, the remainder
// are past roles in stored order. An empty history yields DefaultRole.
func SplitRoles(companies string) (current string, past []string) {
	segments := strings.Split(companies, roleDelimiter)
	current = segments[0]
	if current == "" {
		current = DefaultRole
	}
	past = segments[1:]
	return current, past
}
