// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourcePaper identifies the paper an application idea was derived from.
type SourcePaper struct {
	PaperID PaperID  `json:"paper_id" yaml:"paper_id"`
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors" yaml:"authors"`
}

// ApplicationLedgerEntry is one saved application idea together with the
// papers judged relevant to it. Entries are append-only.
type ApplicationLedgerEntry struct {
	ID            string           `json:"id" yaml:"id"`
	Application   ApplicationIdea  `json:"application" yaml:"application"`
	SourcePaper   SourcePaper      `json:"source_paper" yaml:"source_paper"`
	RelatedPapers []CandidatePaper `json:"related_papers" yaml:"related_papers"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
}
