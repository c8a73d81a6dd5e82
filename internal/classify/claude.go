// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient classifies with the Anthropic Messages API.
type ClaudeClient struct {
	core

	apiKey    string
	maxTokens int
	client    *http.Client
}

// NewClaudeClient returns a Claude-backed classifier. A nil httpClient
// uses http.DefaultClient.
func NewClaudeClient(cfg types.ClassifierConfig, httpClient *http.Client, log *zap.Logger, m *metrics.Metrics) *ClaudeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	c := &ClaudeClient{
		core:      newCore(cfg, log, m),
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		client:    httpClient,
	}
	c.complete = c.call
	return c
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Model   string          `json:"model"`
	Content []claudeContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *ClaudeClient) call(ctx context.Context, prompt string) (completion, error) {
	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return completion{}, err
		}
		return completion{}, transient(fmt.Errorf("calling Claude API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
		if transientStatus(resp.StatusCode) {
			return completion{}, transient(err)
		}
		return completion{}, err
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return completion{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		return completion{
			Text:   block.Text,
			Tokens: cResp.Usage.InputTokens + cResp.Usage.OutputTokens,
			Model:  cResp.Model,
		}, nil
	}
	return completion{}, fmt.Errorf("no text content in Claude API response")
}
