// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// PaperID is the canonical identifier of a paper. Every locator that refers
// to the same paper (abs URL, pdf URL, versioned id, prefixed id) normalizes
// to the same PaperID.
type PaperID string

// String returns the identifier as a plain string.
func (id PaperID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id PaperID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// Author is a paper author as reported by a metadata source.
type Author struct {
	AuthorID string `json:"author_id,omitempty" yaml:"author_id,omitempty"`
	Name     string `json:"name" yaml:"name"`
}

// CandidatePaper is a discovered paper under consideration by the relevance
// filter. It is never persisted on its own; accepted candidates end up in
// ledger entries.
type CandidatePaper struct {
	PaperID  PaperID  `json:"paper_id" yaml:"paper_id"`
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract" yaml:"abstract"`
}

// LibraryPaper is an entry in the tracked-paper list.
type LibraryPaper struct {
	// PaperID is the canonical identifier.
	PaperID PaperID `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title, empty until metadata has been fetched.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// URL is the landing page for the paper (e.g. https://arxiv.org/abs/1706.03762).
	URL string `json:"url" yaml:"url"`

	// AddedAt records when the paper was added to the library.
	AddedAt time.Time `json:"added_at" yaml:"added_at"`
}
