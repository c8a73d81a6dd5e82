// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze produces the structured analysis of a paper.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/pkg/types"
)

// Classifier is the subset of the classification service the analyzer uses.
type Classifier interface {
	ClassifyAnalysis(ctx context.Context, text string) (types.Analysis, error)
}

// Analyzer turns paper text into a types.Analysis.
type Analyzer struct {
	Classifier Classifier
	Log        *zap.Logger
}

// Analyze prefers the clean section Markdown over raw text when sections
// exist and came from a real segmentation. Classification errors are
// returned unchanged.
func (a *Analyzer) Analyze(ctx context.Context, sections *types.SectionMap, rawText string) (types.Analysis, error) {
	text, source := Input(sections, rawText)
	if strings.TrimSpace(text) == "" {
		return types.Analysis{}, fmt.Errorf("%w: no text to analyze", types.ErrClassification)
	}

	if a.Log != nil {
		a.Log.Debug("analyzing", zap.String("input", source), zap.Int("chars", len(text)))
	}
	return a.Classifier.ClassifyAnalysis(ctx, text)
}

// Input picks the analyzer input and names its source ("sections" or
// "raw_text").
func Input(sections *types.SectionMap, rawText string) (string, string) {
	if sections != nil && !sections.Degraded() {
		if md := sections.CleanMarkdown(); md != "" {
			return md, "sections"
		}
	}
	return rawText, "raw_text"
}
