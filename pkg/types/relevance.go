// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RelevanceOutcome is the disposition of one candidate.
type RelevanceOutcome string

const (
	OutcomeAccepted RelevanceOutcome = "accepted"
	OutcomeRejected RelevanceOutcome = "rejected"

	// OutcomeSkipped marks candidates dropped before classification because
	// their metadata lacked a title or abstract.
	OutcomeSkipped RelevanceOutcome = "skipped"
)

// RelevanceDecision records the classifier's verdict (or its absence) for
// one candidate. Decisions form the audit trail of a discovery run.
type RelevanceDecision struct {
	PaperID         PaperID          `json:"paper_id"`
	Outcome         RelevanceOutcome `json:"outcome"`
	Accepted        bool             `json:"accepted"`
	Reason          string           `json:"reason"`
	ClassifierModel string           `json:"classifier_model,omitempty"`
	Error           string           `json:"error,omitempty"`
	// Warning records a problem that did not affect the outcome, such as
	// metadata that was fetched but could not be cached.
	Warning         string           `json:"warning,omitempty"`
	Duration        time.Duration    `json:"duration"`
}

// Errored reports whether the decision was forced by a failure rather than
// a classifier verdict.
func (d RelevanceDecision) Errored() bool { return d.Error != "" }
