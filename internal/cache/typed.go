// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/paperlens/pkg/types"
)

// RawText is a cached raw-text artifact.
type RawText struct {
	Text       string
	Provenance types.Provenance
	// Detail names the backend or model that produced the text.
	Detail string
}

// GetRawText returns the cached raw text with the method that produced it.
func (s *Store) GetRawText(id types.PaperID) (RawText, bool, error) {
	art, found, err := s.Get(id, types.KindRawText)
	if err != nil || !found {
		return RawText{}, found, err
	}
	var text string
	if err := json.Unmarshal(art.Payload, &text); err != nil {
		return RawText{}, false, fmt.Errorf("decoding raw text for %s: %w", id, err)
	}
	return RawText{Text: text, Provenance: art.Provenance, Detail: art.Detail}, true, nil
}

// PutRawText caches raw text. prov is ProvenanceOCR or ProvenanceTextLayer;
// detail names the backend that produced it.
func (s *Store) PutRawText(id types.PaperID, text string, prov types.Provenance, detail string) error {
	return s.Put(id, types.KindRawText, prov, detail, text)
}

// GetSections returns the cached section map.
func (s *Store) GetSections(id types.PaperID) (types.SectionMap, bool, error) {
	var sec types.SectionMap
	found, err := s.getJSON(id, types.KindSections, &sec)
	return sec, found, err
}

// PutSections caches a section map under its own provenance.
func (s *Store) PutSections(id types.PaperID, sec types.SectionMap) error {
	return s.Put(id, types.KindSections, sec.Provenance, "", sec)
}

// GetMetadata returns the cached metadata record.
func (s *Store) GetMetadata(id types.PaperID) (types.Metadata, bool, error) {
	var m types.Metadata
	found, err := s.getJSON(id, types.KindMetadata, &m)
	return m, found, err
}

// PutMetadata caches a metadata record.
func (s *Store) PutMetadata(id types.PaperID, m types.Metadata) error {
	return s.Put(id, types.KindMetadata, types.ProvenanceSemanticScholar, "", m)
}

// GetAnalysis returns the cached analysis.
func (s *Store) GetAnalysis(id types.PaperID) (types.Analysis, bool, error) {
	var a types.Analysis
	found, err := s.getJSON(id, types.KindAnalysis, &a)
	return a, found, err
}

// PutAnalysis caches an analysis; detail records the model.
func (s *Store) PutAnalysis(id types.PaperID, a types.Analysis) error {
	return s.Put(id, types.KindAnalysis, types.ProvenanceClassifier, a.Model, a)
}

func (s *Store) getJSON(id types.PaperID, kind types.ArtifactKind, into any) (bool, error) {
	art, found, err := s.Get(id, kind)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(art.Payload, into); err != nil {
		return false, fmt.Errorf("decoding %s payload for %s: %w", kind, id, err)
	}
	return true, nil
}
