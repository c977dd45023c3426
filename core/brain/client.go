package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/vennbeck/showrunner/core/departments"
)

// Document is one semantic search hit.
type Document struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// CoherenceReport is the brain's view of how well department outputs
// agree with each other.
type CoherenceReport struct {
	Consistency    float64  `json:"consistency"`
	Contradictions []string `json:"contradictions,omitempty"`
}

// Error is a non-2xx response from the brain service.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("brain: status %d: %s", e.StatusCode, e.Message)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results        []Document `json:"results"`
	QueryEmbedding []float32  `json:"query_embedding,omitempty"`
}

type coherenceRequest struct {
	Outputs map[string]string `json:"outputs"`
}

// Client is an HTTP client for the brain service.
type Client struct {
	config  Config
	client  *http.Client
	baseURL string

	mu         sync.RWMutex
	totalCalls int64
	lastError  error
}

// NewClient creates a brain client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}, nil
}

// Search runs a semantic search. When the service returns unscored
// results together with a query embedding, the hits are re-ranked
// locally by cosine similarity.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}

	var resp searchResponse
	if err := c.post(ctx, "/api/v1/search", searchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}

	if len(resp.QueryEmbedding) > 0 && unscored(resp.Results) {
		return Rerank(resp.QueryEmbedding, resp.Results), nil
	}
	return resp.Results, nil
}

// CheckCoherence validates cross-department consistency. The returned
// score is in [0,1]. Satisfies the aggregator's checker contract.
func (c *Client) CheckCoherence(ctx context.Context, outputs map[departments.ID]string) (float64, error) {
	req := coherenceRequest{Outputs: make(map[string]string, len(outputs))}
	for id, text := range outputs {
		req.Outputs[string(id)] = text
	}

	var report CoherenceReport
	if err := c.post(ctx, "/api/v1/coherence", req, &report); err != nil {
		return 0, err
	}
	return report.Consistency, nil
}

// Stats returns call count and the last transport error observed.
func (c *Client) Stats() (calls int64, lastErr error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalCalls, c.lastError
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("brain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("brain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordError(err)
		return fmt.Errorf("brain: request failed: %w", err)
	}
	defer resp.Body.Close()

	c.mu.Lock()
	c.totalCalls++
	c.mu.Unlock()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("brain: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
		c.recordError(apiErr)
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("brain: unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
}

func unscored(docs []Document) bool {
	for _, d := range docs {
		if d.Score != 0 {
			return false
		}
	}
	return len(docs) > 0
}
