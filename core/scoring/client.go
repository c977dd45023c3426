// Package scoring grades creative deliverables: it prompts an LLM for a
// structured assessment, validates and clamps the response, derives a
// gate decision from the threshold policy, and memoizes results by
// content fingerprint.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	faults "github.com/vennbeck/showrunner/core/errors"
	"github.com/vennbeck/showrunner/core/providers"
)

// Client wraps chat-completion providers with the retry-then-fallback
// attempt machine. The primary provider is tried with linear backoff;
// once exhausted, the backup model takes over before failure surfaces.
type Client struct {
	primary providers.Provider
	backup  providers.Provider
	policy  faults.RetryPolicy
	logger  *slog.Logger
}

// NewClient creates a scoring client. backup may be nil, in which case
// exhausted retries surface directly.
func NewClient(primary providers.Provider, backup providers.Provider, policy faults.RetryPolicy) *Client {
	return &Client{
		primary: primary,
		backup:  backup,
		policy:  policy,
		logger:  slog.Default(),
	}
}

// Complete runs one chat completion through the attempt machine.
func (c *Client) Complete(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	machine := faults.NewMachine(c.policy)

	var resp *providers.Response
	primaryOp := func(ctx context.Context) error {
		r, err := c.primary.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	var fallbackOp faults.Operation
	if c.backup != nil {
		fallbackOp = func(ctx context.Context) error {
			c.logger.Warn("scoring: primary model exhausted, using backup",
				"primary", c.primary.Name(), "backup", c.backup.Name())
			r, err := c.backup.Complete(ctx, req)
			if err != nil {
				return err
			}
			resp = r
			return nil
		}
	}

	if _, err := machine.Run(ctx, primaryOp, fallbackOp); err != nil {
		return nil, err
	}
	return resp, nil
}

// JSONOptions tune one structured-completion call.
type JSONOptions struct {
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int
}

// rawJSONInstruction is appended to every structured prompt. Models
// still wrap output in fences often enough that CompleteJSON strips
// them before parsing.
const rawJSONInstruction = "\n\nRespond with raw JSON only. No markdown code fences, no commentary before or after the JSON object."

// CompleteJSON issues a prompt demanding raw JSON and parses the reply
// into out. A reply that does not parse is a malformed-response error:
// it is surfaced immediately, never retried.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, opts JSONOptions, out any) (*providers.Response, error) {
	req := &providers.Request{
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: prompt + rawJSONInstruction},
		},
		SystemPrompt: opts.SystemPrompt,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
	}

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	cleaned := StripFences(resp.Content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrMalformedResponse, err)
	}

	return resp, nil
}

// StripFences removes a surrounding markdown code fence, including an
// optional language tag, from a model reply.
func StripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}

	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
