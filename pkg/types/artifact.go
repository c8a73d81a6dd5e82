// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// ArtifactKind names one of the derived artifacts cached per paper.
type ArtifactKind string

const (
	KindRawText  ArtifactKind = "raw_text"
	KindSections ArtifactKind = "sections"
	KindMetadata ArtifactKind = "metadata"
	KindAnalysis ArtifactKind = "analysis"
)

// AllKinds lists every artifact kind in pipeline order.
var AllKinds = []ArtifactKind{KindRawText, KindSections, KindMetadata, KindAnalysis}

// Valid reports whether k is a known artifact kind.
func (k ArtifactKind) Valid() bool {
	switch k {
	case KindRawText, KindSections, KindMetadata, KindAnalysis:
		return true
	}
	return false
}

// Provenance records which producer made an artifact.
type Provenance string

const (
	ProvenanceOCR             Provenance = "ocr"
	ProvenanceTextLayer       Provenance = "text_layer"
	ProvenanceClassifier      Provenance = "classifier"
	ProvenanceDegraded        Provenance = "degraded"
	ProvenanceSemanticScholar Provenance = "semantic_scholar"
)

// Artifact is the envelope persisted for each cached artifact. Payload holds
// the kind-specific JSON body (for raw text, a JSON string).
type Artifact struct {
	PaperID    PaperID         `json:"paper_id"`
	Kind       ArtifactKind    `json:"kind"`
	Provenance Provenance      `json:"provenance"`
	Detail     string          `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ArtifactStatus reports which kinds are cached for a paper and when each
// was last written.
type ArtifactStatus struct {
	PaperID PaperID                    `json:"paper_id"`
	Present map[ArtifactKind]bool      `json:"present"`
	Updated map[ArtifactKind]time.Time `json:"updated,omitempty"`
}

// Has reports whether kind is cached.
func (s ArtifactStatus) Has(kind ArtifactKind) bool { return s.Present[kind] }
