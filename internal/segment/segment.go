// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits raw paper text into canonical sections.
package segment

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/pkg/types"
)

// Classifier is the subset of the classification service the segmenter uses.
type Classifier interface {
	ClassifySections(ctx context.Context, rawText string) (types.SectionMap, error)
}

// Segmenter produces a SectionMap for raw text.
type Segmenter struct {
	Classifier Classifier
	Log        *zap.Logger
}

// Segment never fails. When the classifier errors the result is the
// degraded map: all text under Experiments, provenance "degraded".
func (s *Segmenter) Segment(ctx context.Context, rawText string) types.SectionMap {
	sec, err := s.Classifier.ClassifySections(ctx, rawText)
	if err != nil {
		s.logger().Warn("section classification failed, using degraded sections", zap.Error(err))
		return types.DegradedSections(rawText)
	}
	sec.Provenance = types.ProvenanceClassifier
	return sec
}

func (s *Segmenter) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
