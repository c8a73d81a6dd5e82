// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/pkg/types"
)

// DiscoverResult is the outcome of Discover.
type DiscoverResult struct {
	Result
	Idea     types.ApplicationIdea     `json:"idea"`
	Source   types.SourcePaper         `json:"source_paper"`
	Accepted []types.CandidatePaper    `json:"accepted"`
	Audit    []types.RelevanceDecision `json:"audit"`

	// Discovered counts raw locators from the discovery sources; Unique
	// counts candidates after dedup with the seeds.
	Discovered int `json:"discovered"`
	Unique     int `json:"unique"`
}

// Discover takes application idea ideaIndex from the paper's cached
// analysis, seeds candidates from the paper's metadata recommendations and
// runs the relevance filter. Missing metadata only costs the seeds.
func (p *Pipeline) Discover(ctx context.Context, locator string, ideaIndex int) DiscoverResult {
	start := time.Now()
	res := p.discover(ctx, locator, ideaIndex)
	p.observe(StageDiscover, res.Result, start)
	return res
}

func (p *Pipeline) discover(ctx context.Context, locator string, ideaIndex int) DiscoverResult {
	var res DiscoverResult
	src, err := p.source(locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = src.PaperID
	log := p.logger().With(zap.String("paper_id", src.PaperID.String()))

	analysis, found, err := p.Store.GetAnalysis(src.PaperID)
	if err != nil {
		res.fail(err)
		return res
	}
	if !found {
		res.fail(fmt.Errorf("%w: %s", ErrNotAnalyzed, src.PaperID))
		return res
	}

	ideas := analysis.ApplicationIdeas()
	if len(ideas) == 0 {
		res.fail(fmt.Errorf("analysis of %s lists no applications", src.PaperID))
		return res
	}
	if ideaIndex < 0 || ideaIndex >= len(ideas) {
		res.fail(fmt.Errorf("application %d out of range: analysis has %d", ideaIndex, len(ideas)))
		return res
	}
	if p.Filter == nil {
		res.fail(errors.New("no relevance filter configured"))
		return res
	}
	idea := ideas[ideaIndex]

	res.Source = types.SourcePaper{PaperID: src.PaperID, Title: analysis.PaperTitle, Authors: []string{}}
	var seeds []types.CandidatePaper
	meta := p.metadata(ctx, locator, false)
	if meta.Success {
		if meta.Metadata.Title != "" {
			res.Source.Title = meta.Metadata.Title
		}
		res.Source.Authors = meta.Metadata.AuthorNames()
		seeds = recommendationSeeds(meta.Metadata)
	} else {
		log.Warn("metadata unavailable, discovering without recommendation seeds", zap.String("error", meta.Error))
	}

	out, err := p.Filter.FilterRelevant(ctx, idea, seeds)
	if err != nil {
		res.fail(err)
		return res
	}

	log.Info("discovery finished",
		zap.String("domain", idea.Domain),
		zap.Int("discovered", out.Discovered),
		zap.Int("unique", out.Unique),
		zap.Int("accepted", len(out.Accepted)))

	res.Success = true
	res.Idea = idea
	res.Accepted = out.Accepted
	if res.Accepted == nil {
		res.Accepted = []types.CandidatePaper{}
	}
	res.Audit = out.Audit
	res.Discovered, res.Unique = out.Discovered, out.Unique
	return res
}

// recommendationSeeds turns the recommendations that carry an arXiv id into
// seed candidates.
func recommendationSeeds(m types.Metadata) []types.CandidatePaper {
	var seeds []types.CandidatePaper
	for _, r := range m.Recommendations {
		if r.ArxivID == "" {
			continue
		}
		seeds = append(seeds, types.CandidatePaper{PaperID: types.PaperID(r.ArxivID), Title: r.Title})
	}
	return seeds
}

// SaveApplication appends a successful discovery to the ledger and returns
// the stored entry.
func (p *Pipeline) SaveApplication(ctx context.Context, r DiscoverResult) (types.ApplicationLedgerEntry, error) {
	if !r.Success {
		return types.ApplicationLedgerEntry{}, fmt.Errorf("cannot save failed discovery for %s: %s", r.PaperID, r.Error)
	}
	if p.Ledger == nil {
		return types.ApplicationLedgerEntry{}, errors.New("no ledger configured")
	}
	if err := ctx.Err(); err != nil {
		return types.ApplicationLedgerEntry{}, err
	}

	entry, err := p.Ledger.Append(types.ApplicationLedgerEntry{
		Application:   r.Idea,
		SourcePaper:   r.Source,
		RelatedPapers: r.Accepted,
	})
	if err != nil {
		return types.ApplicationLedgerEntry{}, err
	}
	p.logger().Info("application saved",
		zap.String("id", entry.ID),
		zap.String("paper_id", r.PaperID.String()),
		zap.Int("related", len(entry.RelatedPapers)))
	return entry, nil
}

// AddResult is the outcome of Add.
type AddResult struct {
	Result
	Paper types.LibraryPaper `json:"paper"`
}

// Add validates locator and adds the paper to the library. A paper that is
// already tracked fails with types.ErrAlreadyExists.
func (p *Pipeline) Add(ctx context.Context, locator string) AddResult {
	start := time.Now()
	res := p.add(ctx, locator)
	p.observe(StageAdd, res.Result, start)
	return res
}

func (p *Pipeline) add(ctx context.Context, locator string) AddResult {
	var res AddResult
	if p.Resolver == nil || p.Library == nil {
		res.fail(errors.New("library is not configured"))
		return res
	}

	r, err := p.Resolver.Resolve(ctx, locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = r.PaperID

	paper := types.LibraryPaper{
		PaperID:  r.PaperID,
		Title:    r.Title,
		Authors:  r.Authors,
		Abstract: r.Abstract,
		URL:      landingURL(r.Source),
	}
	added, err := p.Library.Add(ctx, paper)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Success = true
	res.Paper = added
	return res
}

func landingURL(src acquire.Source) string {
	if src.Type == acquire.TypeLocal {
		return ""
	}
	return src.LandingURL()
}
