// Package email drafts outreach emails for profiles surfaced by a search.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/logger"
	"github.com/scout-hq/scout/internal/metrics"
)

// Service wraps the generation provider with validation and a deterministic
// fallback. Drafting never fails once the input is valid.
type Service struct {
	drafter Drafter
}

// New creates an email drafting service.
func New(drafter Drafter) *Service {
	return &Service{drafter: drafter}
}

// Draft produces an outreach email for the profile in the context of the
// search query that surfaced it. Generation failures degrade to a templated
// draft built from the profile fields.
func (s *Service) Draft(ctx context.Context, profile domain.Attributes, searchQuery string) (string, error) {
	if profile.FullName == "" || searchQuery == "" {
		return "", fmt.Errorf("%w: profile name and search query are required", domain.ErrInvalidRequest)
	}

	currentRole, _ := domain.SplitRoles(profile.Companies)

	text, err := s.drafter.DraftEmail(ctx, profile, currentRole, searchQuery)
	if err != nil {
		metrics.EnrichmentFallbacksTotal.WithLabelValues("email").Inc()
		logger.FromContext(ctx).Warn("email generation failed, using templated draft",
			zap.String("profile", profile.FullName),
			zap.Error(err),
		)
		return fallbackDraft(profile, currentRole, searchQuery), nil
	}

	return text, nil
}

// fallbackDraft is the deterministic template used when generation is
// unavailable. Built only from fields already in hand, so it cannot fail.
func fallbackDraft(profile domain.Attributes, currentRole, searchQuery string) string {
	role := currentRole
	if role == "" {
		role = profile.Headline
	}

	experience := fmt.Sprintf("as %s", role)
	if profile.CurrentCompany != "" {
		experience = fmt.Sprintf("at %s", profile.CurrentCompany)
	}

	return fmt.Sprintf(
		`Hi %s,

I'm [Your Name] from Primary Ventures, and I came across your profile while looking into %s. With your experience %s, I think it would be a great conversation. Do you have 30 minutes to chat in the coming weeks? Thank you!

Best,
[Your Name]`,
		profile.FullName, searchQuery, experience,
	)
}
