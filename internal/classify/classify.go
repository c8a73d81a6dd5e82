// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify wraps the language-model service that turns paper text
// into structured judgments: section maps, analyses and relevance verdicts.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Classifier is the classification service. Implementations are safe for
// concurrent use.
type Classifier interface {
	ClassifyRelevance(ctx context.Context, idea types.ApplicationIdea, title, abstract string) (Verdict, error)
	ClassifySections(ctx context.Context, rawText string) (types.SectionMap, error)
	ClassifyAnalysis(ctx context.Context, text string) (types.Analysis, error)
	Model() string
}

// Verdict is a relevance judgment for one candidate paper.
type Verdict struct {
	Relevant bool
	Reason   string
	Model    string
}

const truncationMarker = "\n\n[Content truncated...]"

// backoffBase is the first retry delay; it doubles per attempt. Tests
// shrink it.
var backoffBase = time.Second

// completion is one model response.
type completion struct {
	Text   string
	Tokens int
	Model  string
}

// transientError marks failures worth retrying: rate limits, overloaded or
// unreachable servers.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error { return &transientError{err: err} }

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// core holds the provider-independent parts of a classifier. Providers set
// complete.
type core struct {
	complete      func(ctx context.Context, prompt string) (completion, error)
	model         string
	maxRetries    int
	maxInputChars int
	log           *zap.Logger
	metrics       *metrics.Metrics
}

func newCore(cfg types.ClassifierConfig, log *zap.Logger, m *metrics.Metrics) core {
	if log == nil {
		log = zap.NewNop()
	}
	return core{
		model:         cfg.Model,
		maxRetries:    cfg.MaxRetries,
		maxInputChars: cfg.MaxInputChars,
		log:           log,
		metrics:       m,
	}
}

// Model returns the configured model identifier.
func (c *core) Model() string { return c.model }

// ClassifyRelevance asks whether a paper with the given title and abstract
// is relevant to idea.
func (c *core) ClassifyRelevance(ctx context.Context, idea types.ApplicationIdea, title, abstract string) (Verdict, error) {
	prompt, err := render(relevancePrompt, struct {
		Domain, Utility, Title, Abstract string
	}{idea.Domain, idea.SpecificUtility, title, abstract})
	if err != nil {
		return Verdict{}, err
	}

	var out struct {
		Decision *bool  `json:"decision"`
		Reason   string `json:"reason"`
	}
	comp, err := c.classify(ctx, "relevance", prompt, &out)
	if err != nil {
		return Verdict{}, err
	}
	if out.Decision == nil {
		return Verdict{}, fmt.Errorf("%w: relevance response has no decision", types.ErrClassification)
	}
	return Verdict{Relevant: *out.Decision, Reason: strings.TrimSpace(out.Reason), Model: comp.Model}, nil
}

// ClassifySections segments raw paper text into canonical sections.
func (c *core) ClassifySections(ctx context.Context, rawText string) (types.SectionMap, error) {
	prompt, err := render(sectionsPrompt, struct{ Text string }{c.truncate(rawText)})
	if err != nil {
		return types.SectionMap{}, err
	}

	var sec types.SectionMap
	if _, err := c.classify(ctx, "sections", prompt, &sec); err != nil {
		return types.SectionMap{}, err
	}
	if strings.TrimSpace(sec.Title+sec.Abstract+sec.Introduction+sec.Methodology+sec.Experiments+sec.Conclusion) == "" {
		return types.SectionMap{}, fmt.Errorf("%w: section response is empty", types.ErrClassification)
	}
	sec.Provenance = types.ProvenanceClassifier
	return sec, nil
}

// ClassifyAnalysis produces the structured analysis of a paper.
func (c *core) ClassifyAnalysis(ctx context.Context, text string) (types.Analysis, error) {
	prompt, err := render(analysisPrompt, struct{ Text string }{c.truncate(text)})
	if err != nil {
		return types.Analysis{}, err
	}

	var an types.Analysis
	comp, err := c.classify(ctx, "analysis", prompt, &an)
	if err != nil {
		return types.Analysis{}, err
	}
	if strings.TrimSpace(an.PaperTitle) == "" && strings.TrimSpace(an.Summary.MainContribution) == "" {
		return types.Analysis{}, fmt.Errorf("%w: analysis response has no title or contribution", types.ErrClassification)
	}
	if an.Benchmarks == nil {
		an.Benchmarks = []types.Benchmark{}
	}
	an.Model = comp.Model
	an.TokensUsed = comp.Tokens
	return an, nil
}

// classify runs the prompt with retries and decodes the JSON answer into v.
func (c *core) classify(ctx context.Context, op, prompt string, v any) (completion, error) {
	start := time.Now()
	comp, err := c.completeWithRetry(ctx, op, prompt)
	c.metrics.ObserveClassifier(op, time.Since(start))
	if err != nil {
		return completion{}, fmt.Errorf("%w: %s: %w", types.ErrClassification, op, err)
	}
	if comp.Model == "" {
		comp.Model = c.model
	}
	if err := decodeJSON(comp.Text, v); err != nil {
		return completion{}, fmt.Errorf("%w: %s: %v", types.ErrClassification, op, err)
	}
	return comp, nil
}

func (c *core) completeWithRetry(ctx context.Context, op, prompt string) (completion, error) {
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	var err error
	for attempt := 0; ; attempt++ {
		var comp completion
		comp, err = c.complete(ctx, prompt)
		if err == nil {
			return comp, nil
		}
		var te *transientError
		if !errors.As(err, &te) || attempt >= retries {
			return completion{}, err
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * backoffBase
		c.log.Debug("retrying classification",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return completion{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *core) truncate(text string) string {
	if c.maxInputChars <= 0 || len(text) <= c.maxInputChars {
		return text
	}
	cut := c.maxInputChars
	// Back off to a rune boundary.
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationMarker
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// decodeJSON parses the first JSON object in text, tolerating Markdown code
// fences and prose around it.
func decodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

// New builds the classifier named by cfg.Provider.
func New(ctx context.Context, cfg types.ClassifierConfig, httpClient *http.Client, log *zap.Logger, m *metrics.Metrics) (Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier %s: API key is required", cfg.Provider)
	}
	switch cfg.Provider {
	case "", types.ProviderClaude:
		return NewClaudeClient(cfg, httpClient, log, m), nil
	case types.ProviderGemini:
		return NewGeminiClient(ctx, cfg, log, m)
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
