// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Benchmark is one quantitative result reported in a paper.
type Benchmark struct {
	Name    string `json:"name" yaml:"name"`
	Score   string `json:"score" yaml:"score"`
	Metric  string `json:"metric" yaml:"metric"`
	Setting string `json:"setting,omitempty" yaml:"setting,omitempty"`

	// IsThisPaperResult distinguishes the authors' own numbers from
	// baselines quoted from prior work.
	IsThisPaperResult bool `json:"is_this_paper_result" yaml:"is_this_paper_result"`

	// SourceQuote is the text snippet or table row the number came from.
	SourceQuote string `json:"source_quote" yaml:"source_quote"`
}

// Novelty describes what changed relative to prior work.
type Novelty struct {
	StatusQuo        string `json:"status_quo" yaml:"status_quo"`
	ProposedDelta    string `json:"proposed_delta" yaml:"proposed_delta"`
	NoveltySummary   string `json:"novelty_summary" yaml:"novelty_summary"`
	RealWorldAnalogy string `json:"real_world_analogy" yaml:"real_world_analogy"`
}

// Summary is the general summary of a paper.
type Summary struct {
	MainContribution string   `json:"main_contribution" yaml:"main_contribution"`
	Methodology      string   `json:"methodology" yaml:"methodology"`
	Applications     []string `json:"applications" yaml:"applications"`
	Limitations      string   `json:"limitations" yaml:"limitations"`
}

// Analysis is the structured analysis of one paper.
type Analysis struct {
	PaperTitle string      `json:"paper_title" yaml:"paper_title"`
	Novelty    Novelty     `json:"novelty" yaml:"novelty"`
	Summary    Summary     `json:"summary" yaml:"summary"`
	Benchmarks []Benchmark `json:"benchmarks" yaml:"benchmarks"`

	// Model and TokensUsed are reported by the classifier.
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty" yaml:"tokens_used,omitempty"`
}

// ApplicationIdea is a target domain plus the utility the source paper
// offers it. It seeds relevance discovery.
type ApplicationIdea struct {
	Domain          string `json:"domain" yaml:"domain"`
	SpecificUtility string `json:"specific_utility" yaml:"specific_utility"`
}

// ApplicationIdeas derives one idea per application listed in the summary,
// skipping blanks. The first idea is the default discovery seed.
func (a Analysis) ApplicationIdeas() []ApplicationIdea {
	var ideas []ApplicationIdea
	for _, app := range a.Summary.Applications {
		domain := strings.TrimSpace(app)
		if domain == "" {
			continue
		}
		ideas = append(ideas, ApplicationIdea{
			Domain:          domain,
			SpecificUtility: strings.TrimSpace(a.Summary.MainContribution),
		})
	}
	return ideas
}

// OwnResults returns the benchmarks achieved by the paper's authors.
func (a Analysis) OwnResults() []Benchmark {
	var out []Benchmark
	for _, b := range a.Benchmarks {
		if b.IsThisPaperResult {
			out = append(out, b)
		}
	}
	return out
}
