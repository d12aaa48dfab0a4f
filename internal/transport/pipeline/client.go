// Package pipeline is the HTTP client for the external profile enrichment pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/scout-hq/scout/internal/domain"
)

// Client calls the enrichment pipeline. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	baseURL string
	// jsonClient has a request timeout; streamClient must not, since relayed
	// jobs can legitimately run for minutes.
	jsonClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// Config holds enrichment pipeline connection settings.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewClient creates an enrichment pipeline client.
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		jsonClient:   &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{},
		logger:       cfg.Logger,
	}
}

// ProcessResult is the pipeline's reply to a single-record trigger.
type ProcessResult struct {
	StatusCode int
	OK         bool
	Data       map[string]any
}

// ProcessProfile triggers enrichment of a single profile and waits for the
// JSON acknowledgement.
func (c *Client) ProcessProfile(ctx context.Context, linkedinURL string) (*ProcessResult, error) {
	if linkedinURL == "" {
		return nil, domain.ErrMissingProfileURL
	}
	u := fmt.Sprintf("%s/api/process-profile?linkedin_url=%s", c.baseURL, url.QueryEscape(linkedinURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPipelineUnavailable, err)
	}
	defer resp.Body.Close()

	result := &ProcessResult{
		StatusCode: resp.StatusCode,
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
	}

	// The pipeline sometimes answers with an empty or non-JSON body; that is
	// not an error, only the acknowledgement data is missing.
	if err := json.NewDecoder(resp.Body).Decode(&result.Data); err != nil {
		result.Data = map[string]any{}
	}

	return result, nil
}

// OpenBulkStream triggers enrichment of all records and returns the raw
// upstream event stream plus the HTTP status. The caller owns the reader.
func (c *Client) OpenBulkStream(
	ctx context.Context, batchSize, maxConcurrent int,
) (io.ReadCloser, int, error) {
	u := fmt.Sprintf("%s/api/process-all-records?batch_size=%s&max_concurrent=%s",
		c.baseURL, strconv.Itoa(batchSize), strconv.Itoa(maxConcurrent))

	return c.openStream(ctx, u)
}

// OpenProfileStream triggers enrichment of a single profile and returns the
// live event stream variant of the reply. The caller owns the reader.
func (c *Client) OpenProfileStream(ctx context.Context, linkedinURL string) (io.ReadCloser, int, error) {
	if linkedinURL == "" {
		return nil, 0, domain.ErrMissingProfileURL
	}
	u := fmt.Sprintf("%s/api/process-profile?linkedin_url=%s", c.baseURL, url.QueryEscape(linkedinURL))

	return c.openStream(ctx, u)
}

func (c *Client) openStream(ctx context.Context, u string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrPipelineUnavailable, err)
	}

	return resp.Body, resp.StatusCode, nil
}
