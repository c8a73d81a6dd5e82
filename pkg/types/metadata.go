// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// ExternalIDs carries the identifiers a metadata source links to a paper.
type ExternalIDs struct {
	ArXiv    string `json:"arxiv,omitempty"`
	DOI      string `json:"doi,omitempty"`
	CorpusID int    `json:"corpus_id,omitempty"`
}

// PaperRef is a lightweight pointer to another paper (citation or
// recommendation).
type PaperRef struct {
	PaperID string `json:"paper_id,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Metadata is the bibliographic record for a paper, mapped once from the
// provider's response. Optional fields that the provider omits are zero
// values, never absent keys.
type Metadata struct {
	PaperID                  PaperID     `json:"paper_id"`
	S2PaperID                string      `json:"s2_paper_id"`
	Title                    string      `json:"title"`
	Abstract                 string      `json:"abstract"`
	Authors                  []Author    `json:"authors"`
	Year                     int         `json:"year"`
	PublicationDate          string      `json:"publication_date"`
	Venue                    string      `json:"venue"`
	URL                      string      `json:"url"`
	CitationCount            int         `json:"citation_count"`
	ReferenceCount           int         `json:"reference_count"`
	InfluentialCitationCount int         `json:"influential_citation_count"`
	IsOpenAccess             bool        `json:"is_open_access"`
	OpenAccessPDF            string      `json:"open_access_pdf"`
	FieldsOfStudy            []string    `json:"fields_of_study"`
	ExternalIDs              ExternalIDs `json:"external_ids"`
	TLDR                     string      `json:"tldr"`
	Citations                []PaperRef  `json:"citations"`
	Recommendations          []PaperRef  `json:"recommendations"`
}

// HasContent reports whether both title and abstract are present. Papers
// without them cannot be classified for relevance.
func (m Metadata) HasContent() bool {
	return strings.TrimSpace(m.Title) != "" && strings.TrimSpace(m.Abstract) != ""
}

// AuthorNames returns the author names in source order.
func (m Metadata) AuthorNames() []string {
	names := make([]string, 0, len(m.Authors))
	for _, a := range m.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// Candidate converts the record into a CandidatePaper.
func (m Metadata) Candidate() CandidatePaper {
	return CandidatePaper{
		PaperID:  m.PaperID,
		Title:    m.Title,
		Authors:  m.AuthorNames(),
		Abstract: m.Abstract,
	}
}
