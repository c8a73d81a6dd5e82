// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

// generateFunc matches genai's Models.GenerateContent.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiClient classifies with the Gemini API in JSON response mode.
type GeminiClient struct {
	core

	maxTokens int32
	generate  generateFunc
}

// NewGeminiClient returns a Gemini-backed classifier.
func NewGeminiClient(ctx context.Context, cfg types.ClassifierConfig, log *zap.Logger, m *metrics.Metrics) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return newGeminiClient(cfg, client.Models.GenerateContent, log, m), nil
}

func newGeminiClient(cfg types.ClassifierConfig, gen generateFunc, log *zap.Logger, m *metrics.Metrics) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	g := &GeminiClient{
		core:      newCore(cfg, log, m),
		maxTokens: int32(maxTokens),
		generate:  gen,
	}
	g.complete = g.call
	return g
}

func (g *GeminiClient) call(ctx context.Context, prompt string) (completion, error) {
	resp, err := g.generate(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
		MaxOutputTokens:  g.maxTokens,
	})
	if err != nil {
		if transientStatus(apiErrorCode(err)) {
			return completion{}, transient(fmt.Errorf("calling Gemini API: %w", err))
		}
		return completion{}, fmt.Errorf("calling Gemini API: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return completion{}, fmt.Errorf("no text content in Gemini response")
	}

	comp := completion{Text: text, Model: resp.ModelVersion}
	if resp.UsageMetadata != nil {
		comp.Tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return comp, nil
}

// apiErrorCode returns the HTTP status carried by a genai.APIError, or 0.
func apiErrorCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
