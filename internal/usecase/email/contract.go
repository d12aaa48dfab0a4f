package email

import (
	"context"

	"github.com/scout-hq/scout/internal/domain"
)

// Drafter generates outreach email text for a profile found via a search.
type Drafter interface {
	DraftEmail(ctx context.Context, profile domain.Attributes, currentRole, searchQuery string) (string, error)
}
