// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires the stages together: parse a paper into raw text,
// segment it, analyze it, fetch its metadata, and discover related papers
// for one of its application ideas. Every stage consults the artifact
// store first and only calls a collaborator on a miss or when forced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/internal/cache"
	"github.com/pdiddy/paperlens/internal/extract"
	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/internal/relevance"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Stage names used in logs and metrics.
const (
	StageParse    = "parse"
	StageSections = "sections"
	StageAnalyze  = "analyze"
	StageMetadata = "metadata"
	StageDiscover = "discover"
	StageAdd      = "add"
)

// ErrNotAnalyzed is returned by Discover when the paper has no cached
// analysis to take an application idea from.
var ErrNotAnalyzed = errors.New("paper must be analyzed before discovery")

// Extractor produces raw text for a source.
type Extractor interface {
	Extract(ctx context.Context, src acquire.Source) (extract.Result, error)
}

// Segmenter splits raw text into sections. It never fails.
type Segmenter interface {
	Segment(ctx context.Context, rawText string) types.SectionMap
}

// Analyzer produces the structured analysis.
type Analyzer interface {
	Analyze(ctx context.Context, sections *types.SectionMap, rawText string) (types.Analysis, error)
}

// RelevanceFilter discovers and classifies related papers.
type RelevanceFilter interface {
	FilterRelevant(ctx context.Context, idea types.ApplicationIdea, seeds []types.CandidatePaper) (relevance.Outcome, error)
}

// Ledger stores saved application ideas.
type Ledger interface {
	Append(entry types.ApplicationLedgerEntry) (types.ApplicationLedgerEntry, error)
}

// Resolver validates locators before they enter the library.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (acquire.Resolution, error)
}

// Library is the tracked-paper list.
type Library interface {
	Add(ctx context.Context, paper types.LibraryPaper) (types.LibraryPaper, error)
	UpdateFromMetadata(ctx context.Context, m types.Metadata) (bool, error)
}

// Pipeline runs the stages against one artifact store. Fields left nil
// make the stages that need them fail with a descriptive error.
type Pipeline struct {
	Store     *cache.Store
	Extractor Extractor
	Segmenter Segmenter
	Analyzer  Analyzer
	Provider  relevance.MetadataProvider
	Filter    RelevanceFilter
	Ledger    Ledger
	Resolver  Resolver
	Library   Library

	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Result is the part every stage result shares. Data fields of the
// enclosing result are populated only when Success is true.
type Result struct {
	PaperID   types.PaperID `json:"paper_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	FromCache bool          `json:"from_cache"`

	err error
}

// Err returns the failure behind Error, for errors.Is checks.
func (r Result) Err() error { return r.err }

func (r *Result) fail(err error) {
	r.Success = false
	r.Error = err.Error()
	r.err = err
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Result
	Text   string           `json:"text,omitempty"`
	Method types.Provenance `json:"method,omitempty"`
	Detail string           `json:"detail,omitempty"`
}

// SectionsResult is the outcome of Sections.
type SectionsResult struct {
	Result
	Sections types.SectionMap `json:"sections"`
}

// AnalyzeResult is the outcome of Analyze.
type AnalyzeResult struct {
	Result
	Analysis types.Analysis `json:"analysis"`
}

// MetadataResult is the outcome of Metadata.
type MetadataResult struct {
	Result
	Metadata types.Metadata `json:"metadata"`
}

// source normalizes a locator. A bare PaperID that is already cached is
// accepted as is, so ids printed by status and list round-trip.
func (p *Pipeline) source(locator string) (acquire.Source, error) {
	src, err := acquire.Normalize(locator)
	if err == nil {
		return src, nil
	}
	id := types.PaperID(locator)
	if p.Store != nil && !id.IsZero() {
		if st, serr := p.Store.Status(id); serr == nil {
			for _, kind := range types.AllKinds {
				if st.Has(kind) {
					return acquire.Source{Type: acquire.TypeUnknown, Normalized: locator, PaperID: id}, nil
				}
			}
		}
	}
	return acquire.Source{}, err
}

// Parse returns the paper's raw text, extracting and caching it on a miss
// or when force is set. A cache write failure fails the stage.
func (p *Pipeline) Parse(ctx context.Context, locator string, force bool) ParseResult {
	start := time.Now()
	res := p.parse(ctx, locator, force)
	p.observe(StageParse, res.Result, start)
	return res
}

func (p *Pipeline) parse(ctx context.Context, locator string, force bool) ParseResult {
	var res ParseResult
	src, err := p.source(locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = src.PaperID
	log := p.logger().With(zap.String("paper_id", src.PaperID.String()))

	if !force {
		raw, found, err := p.Store.GetRawText(src.PaperID)
		if err != nil {
			res.fail(err)
			return res
		}
		if found {
			log.Debug("raw text from cache")
			res.Success, res.FromCache = true, true
			res.Text, res.Method, res.Detail = raw.Text, raw.Provenance, raw.Detail
			return res
		}
	}

	if p.Extractor == nil {
		res.fail(errors.New("no extractor configured"))
		return res
	}
	if src.Type == acquire.TypeUnknown {
		res.fail(fmt.Errorf("%w: no source locator for %s", types.ErrInvalidIdentifier, src.PaperID))
		return res
	}

	out, err := p.Extractor.Extract(ctx, src)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		res.fail(err)
		return res
	}
	if err := p.Store.PutRawText(src.PaperID, out.Text, out.Method, out.Detail); err != nil {
		log.Error("caching raw text failed", zap.Error(err))
		res.fail(err)
		return res
	}

	log.Info("parsed", zap.String("method", string(out.Method)), zap.Int("chars", len(out.Text)))
	res.Success = true
	res.Text, res.Method, res.Detail = out.Text, out.Method, out.Detail
	return res
}

// Sections returns the paper's section map. Raw text is parsed first when
// it is not cached. A degraded map is cached like a clean one; force
// re-runs segmentation.
func (p *Pipeline) Sections(ctx context.Context, locator string, force bool) SectionsResult {
	start := time.Now()
	res := p.sections(ctx, locator, force)
	p.observe(StageSections, res.Result, start)
	return res
}

func (p *Pipeline) sections(ctx context.Context, locator string, force bool) SectionsResult {
	var res SectionsResult
	src, err := p.source(locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = src.PaperID

	if !force {
		sec, found, err := p.Store.GetSections(src.PaperID)
		if err != nil {
			res.fail(err)
			return res
		}
		if found {
			res.Success, res.FromCache = true, true
			res.Sections = sec
			return res
		}
	}

	raw := p.parse(ctx, locator, false)
	if !raw.Success {
		res.fail(fmt.Errorf("raw text unavailable: %w", raw.err))
		return res
	}
	if p.Segmenter == nil {
		res.fail(errors.New("no segmenter configured"))
		return res
	}

	sec := p.Segmenter.Segment(ctx, raw.Text)
	if err := p.Store.PutSections(src.PaperID, sec); err != nil {
		res.fail(err)
		return res
	}
	p.logger().Info("segmented",
		zap.String("paper_id", src.PaperID.String()),
		zap.Bool("degraded", sec.Degraded()))
	res.Success = true
	res.Sections = sec
	return res
}

// Analyze returns the paper's analysis. Raw text is parsed first when it
// is not cached; cached sections, when present, are the preferred input.
// A classification failure fails the stage and nothing is cached.
func (p *Pipeline) Analyze(ctx context.Context, locator string, force bool) AnalyzeResult {
	start := time.Now()
	res := p.analyze(ctx, locator, force)
	p.observe(StageAnalyze, res.Result, start)
	return res
}

func (p *Pipeline) analyze(ctx context.Context, locator string, force bool) AnalyzeResult {
	var res AnalyzeResult
	src, err := p.source(locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = src.PaperID

	if !force {
		a, found, err := p.Store.GetAnalysis(src.PaperID)
		if err != nil {
			res.fail(err)
			return res
		}
		if found {
			res.Success, res.FromCache = true, true
			res.Analysis = a
			return res
		}
	}

	raw := p.parse(ctx, locator, false)
	if !raw.Success {
		res.fail(fmt.Errorf("raw text unavailable: %w", raw.err))
		return res
	}
	if p.Analyzer == nil {
		res.fail(errors.New("no analyzer configured"))
		return res
	}

	var sections *types.SectionMap
	if sec, found, err := p.Store.GetSections(src.PaperID); err != nil {
		p.logger().Warn("cached sections unreadable", zap.String("paper_id", src.PaperID.String()), zap.Error(err))
	} else if found {
		sections = &sec
	}

	a, err := p.Analyzer.Analyze(ctx, sections, raw.Text)
	if err != nil {
		res.fail(err)
		return res
	}
	if err := p.Store.PutAnalysis(src.PaperID, a); err != nil {
		res.fail(err)
		return res
	}
	p.logger().Info("analyzed",
		zap.String("paper_id", src.PaperID.String()),
		zap.Int("benchmarks", len(a.Benchmarks)),
		zap.Int("applications", len(a.Summary.Applications)))
	res.Success = true
	res.Analysis = a
	return res
}

// Metadata returns the paper's metadata record, fetching and caching it on
// a miss or when force is set. A fetched record also refreshes the
// library entry for the paper, if there is one.
func (p *Pipeline) Metadata(ctx context.Context, locator string, force bool) MetadataResult {
	start := time.Now()
	res := p.metadata(ctx, locator, force)
	p.observe(StageMetadata, res.Result, start)
	return res
}

func (p *Pipeline) metadata(ctx context.Context, locator string, force bool) MetadataResult {
	var res MetadataResult
	src, err := p.source(locator)
	if err != nil {
		res.fail(err)
		return res
	}
	res.PaperID = src.PaperID

	if !force {
		m, found, err := p.Store.GetMetadata(src.PaperID)
		if err != nil {
			res.fail(err)
			return res
		}
		if found {
			res.Success, res.FromCache = true, true
			res.Metadata = m
			return res
		}
	}

	if p.Provider == nil {
		res.fail(errors.New("no metadata provider configured"))
		return res
	}
	m, err := p.Provider.FetchMetadata(ctx, src.PaperID)
	if err != nil {
		res.fail(err)
		return res
	}
	if err := p.Store.PutMetadata(src.PaperID, m); err != nil {
		res.fail(err)
		return res
	}

	if p.Library != nil {
		if _, err := p.Library.UpdateFromMetadata(ctx, m); err != nil {
			p.logger().Warn("library refresh failed", zap.String("paper_id", src.PaperID.String()), zap.Error(err))
		}
	}
	res.Success = true
	res.Metadata = m
	return res
}

// Status reports which artifacts are cached for the paper.
func (p *Pipeline) Status(locator string) (types.ArtifactStatus, error) {
	src, err := p.source(locator)
	if err != nil {
		return types.ArtifactStatus{}, err
	}
	return p.Store.Status(src.PaperID)
}

// Clear removes the given artifact kinds for the paper, or every artifact
// when no kinds are given.
func (p *Pipeline) Clear(locator string, kinds ...types.ArtifactKind) (types.PaperID, error) {
	src, err := p.source(locator)
	if err != nil {
		return "", err
	}
	if err := p.Store.Clear(src.PaperID, kinds...); err != nil {
		return src.PaperID, err
	}
	p.logger().Info("cleared",
		zap.String("paper_id", src.PaperID.String()),
		zap.Int("kinds", len(kinds)))
	return src.PaperID, nil
}

func (p *Pipeline) observe(stage string, r Result, start time.Time) {
	p.Metrics.ObserveStage(stage, r.Success, time.Since(start))
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
