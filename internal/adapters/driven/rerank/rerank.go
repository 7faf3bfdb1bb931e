// Package rerank provides a cross-encoder adapter backed by an HTTP
// scoring service with a text-embeddings-inference compatible /rerank
// endpoint.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// Ensure CrossEncoder implements the interface.
var _ driven.CrossEncoder = (*CrossEncoder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "bge-reranker-base"
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond caps outbound request rate.
	DefaultRequestsPerSecond = 20
)

// Config holds configuration for the cross-encoder service.
type Config struct {
	// BaseURL is the scoring service base URL (default: http://localhost:8080).
	BaseURL string

	// Model is the scoring model name, informational only; the server
	// decides which model it serves.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond caps outbound request rate (default: 20).
	RequestsPerSecond float64
}

// CrossEncoder scores (query, text) pairs via an HTTP scoring service.
type CrossEncoder struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	model   string
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one entry of the /rerank response.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewCrossEncoder creates a new HTTP cross-encoder client.
func NewCrossEncoder(cfg Config) *CrossEncoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &CrossEncoder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// ScoreBatch returns one relevance score per candidate text, in input order.
func (c *CrossEncoder) ScoreBatch(ctx context.Context, query string, candidateTexts []string) ([]float64, error) {
	if len(candidateTexts) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: candidateTexts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("rerank error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	// The server returns pairs sorted by score; re-assemble input order.
	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(results) != len(candidateTexts) {
		return nil, fmt.Errorf("rerank returned %d scores for %d texts", len(results), len(candidateTexts))
	}

	scores := make([]float64, len(candidateTexts))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.Score
	}

	return scores, nil
}

// ModelName returns the name of the scoring model being used.
func (c *CrossEncoder) ModelName() string {
	return c.model
}

// Close releases resources.
func (c *CrossEncoder) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
