package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
	"github.com/scout-hq/scout/internal/metrics"
)

// Generation kinds used as metric labels.
const (
	kindSummary  = "summary"
	kindAnalysis = "analysis"
	kindEmail    = "email"
)

// Generator produces natural-language enrichment via the chat completions API.
// All operations are best-effort from the caller's point of view: errors are
// returned as-is and the use case layer substitutes fallbacks.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the text generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Summarize produces a concise two-line summary of a candidate's background.
func (g *Generator) Summarize(ctx context.Context, c domain.Candidate) (string, error) {
	prompt := fmt.Sprintf(
		`Create a concise two-line summary of this professional's background and expertise:
Name: %s
Current Company: %s
Headline: %s
Original Summary: %s
Companies: %s
Location: %s

The summary should be professional, informative, and highlight their key expertise areas and roles.
Keep it to exactly two lines (about 25-30 words total).`,
		c.Attrs.FullName, c.Attrs.CurrentCompany, c.Attrs.Headline,
		c.Attrs.RawSummary, c.Attrs.Companies, c.Attrs.Location,
	)

	return g.complete(ctx, kindSummary, prompt)
}

// Analyze produces a 1-2 sentence analysis of a whole result batch for a query.
func (g *Generator) Analyze(ctx context.Context, query string, n int) (string, error) {
	prompt := fmt.Sprintf(
		`Analyze these %d professional profiles that match the query %q.
Provide a brief summary of the expertise areas, companies, profiles, and patterns as it relates to the query.
Explain why this could be helpful for the query. Keep it concise (1-2 sentences).`,
		n, query,
	)

	return g.complete(ctx, kindAnalysis, prompt)
}

// DraftEmail writes a short outreach email to a profile found via searchQuery.
func (g *Generator) DraftEmail(
	ctx context.Context, profile domain.Attributes, currentRole, searchQuery string,
) (string, error) {
	role := currentRole
	if role == "" {
		role = profile.Headline
	}

	prompt := fmt.Sprintf(
		`Write a short, professional email (3-4 sentences) to %s based on the following context:

- You work at Primary Ventures
- The search query that led to finding this person was: %q
- Their current role: %s
- Their current company: %s
- Their background: %s
- Their past companies: %s

The email should:
1. Be direct, professional, and warm
2. Mention you work at Primary Ventures
3. Reference the search query context
4. Acknowledge their experience relevant to the query, but in a casual way
5. Ask for a 30-minute chat in the coming weeks
6. End with "Best,"

Replace the sender's name with a [Your Name] placeholder that the user can fill in.`,
		profile.FullName, searchQuery, role, profile.CurrentCompany,
		profile.RawSummary, profile.Companies,
	)

	return g.complete(ctx, kindEmail, prompt)
}

func (g *Generator) complete(ctx context.Context, kind, prompt string) (string, error) {
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("chat completion (%s): %w", kind, err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("chat completion (%s): empty response", kind)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(kind, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(kind).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}
