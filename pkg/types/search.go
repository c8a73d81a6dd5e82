// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures passed between paperlens stages:
// identifiers, cached artifacts, section maps, analyses, metadata, relevance
// decisions and ledger entries, plus configuration and sentinel errors.
package types

import "time"

// SearchResult is one hit returned by a discovery source. Discovery only
// needs Locator; the remaining fields are kept for display in the search
// command.
type SearchResult struct {
	// Locator is what the source returned to identify the paper: an arXiv
	// abs URL, a bare arXiv ID, or a DOI. The relevance filter normalizes it.
	Locator string `json:"locator" yaml:"locator"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date" yaml:"date"`

	// Source names the discovery source (e.g. "arxiv", "semantic_scholar").
	Source string `json:"source" yaml:"source"`

	// Rank is a position-based score between 0.0 and 1.0.
	Rank float64 `json:"rank" yaml:"rank"`
}
