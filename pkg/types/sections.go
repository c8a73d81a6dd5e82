// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// SectionMap is the canonical segmentation of a paper's text. All fields
// except CodeLink are always present, possibly empty.
type SectionMap struct {
	Title        string `json:"title"`
	Abstract     string `json:"abstract"`
	Introduction string `json:"introduction"`
	Methodology  string `json:"methodology"`
	Experiments  string `json:"experiments"`
	Conclusion   string `json:"conclusion"`
	CodeLink     string `json:"code_link,omitempty"`

	// Provenance is ProvenanceClassifier for a real segmentation and
	// ProvenanceDegraded when the segmenter fell back.
	Provenance Provenance `json:"provenance"`
}

// DegradedSections builds the fallback SectionMap: the whole raw text goes
// into Experiments and every other section is empty.
func DegradedSections(rawText string) SectionMap {
	return SectionMap{
		Experiments: rawText,
		Provenance:  ProvenanceDegraded,
	}
}

// Degraded reports whether the map is a fallback rather than a real
// segmentation.
func (s SectionMap) Degraded() bool {
	return s.Provenance == ProvenanceDegraded
}

// CleanMarkdown renders the non-empty sections as Markdown in reading order.
// The analyzer feeds this to the classifier instead of the raw text, which
// drops page headers, references and other noise.
func (s SectionMap) CleanMarkdown() string {
	var b strings.Builder
	if t := strings.TrimSpace(s.Title); t != "" {
		b.WriteString("# " + t + "\n\n")
	}
	for _, sec := range []struct{ heading, body string }{
		{"Abstract", s.Abstract},
		{"Introduction", s.Introduction},
		{"Methodology", s.Methodology},
		{"Experiments", s.Experiments},
		{"Conclusion", s.Conclusion},
	} {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}
		b.WriteString("## " + sec.heading + "\n\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	if link := strings.TrimSpace(s.CodeLink); link != "" {
		b.WriteString("Code: " + link + "\n")
	}
	return strings.TrimSpace(b.String())
}
