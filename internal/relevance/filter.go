// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance turns an application idea into the set of papers judged
// relevant to it. Candidates come from discovery sources plus caller seeds;
// each one is resolved to metadata and classified concurrently.
package relevance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/internal/classify"
	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Defaults applied when the corresponding Filter field is zero.
const (
	DefaultWorkers        = 8
	DefaultTaskTimeout    = 60 * time.Second
	DefaultDiscoveryLimit = 10
)

// ErrEmptyIdea is returned when the application idea has no domain to
// search for.
var ErrEmptyIdea = errors.New("application idea has no domain")

// DiscoverFunc returns raw locators for a search text, bounded to limit per
// source. Failures are absorbed by the implementation.
type DiscoverFunc func(ctx context.Context, text string, limit int) []string

// MetadataStore is the slice of the artifact store the filter touches.
type MetadataStore interface {
	GetMetadata(id types.PaperID) (types.Metadata, bool, error)
	PutMetadata(id types.PaperID, m types.Metadata) error
}

// MetadataProvider fetches metadata for a paper.
type MetadataProvider interface {
	FetchMetadata(ctx context.Context, id types.PaperID) (types.Metadata, error)
}

// Classifier judges a candidate against an idea.
type Classifier interface {
	ClassifyRelevance(ctx context.Context, idea types.ApplicationIdea, title, abstract string) (classify.Verdict, error)
	Model() string
}

// Outcome is the result of one filter run.
type Outcome struct {
	// Accepted holds the candidates the classifier judged relevant.
	Accepted []types.CandidatePaper

	// Audit has exactly one decision per unique candidate.
	Audit []types.RelevanceDecision

	// Discovered counts the raw locators the sources returned; Unique
	// counts the candidate identifiers after normalization and union with
	// the seeds.
	Discovered int
	Unique     int
}

// Rejected returns the decisions that were rejected, including failures.
func (o Outcome) Rejected() []types.RelevanceDecision {
	var out []types.RelevanceDecision
	for _, d := range o.Audit {
		if d.Outcome == types.OutcomeRejected {
			out = append(out, d)
		}
	}
	return out
}

// Filter runs discovery and relevance classification.
type Filter struct {
	Discover   DiscoverFunc
	Store      MetadataStore
	Provider   MetadataProvider
	Classifier Classifier

	// Workers bounds the number of candidates evaluated at once.
	Workers int

	// TaskTimeout bounds one candidate's metadata lookup plus
	// classification. A candidate that runs over is rejected.
	TaskTimeout time.Duration

	// DiscoveryLimit is the per-source hit count asked of Discover.
	DiscoveryLimit int

	Log     *zap.Logger
	Metrics *metrics.Metrics

	now func() time.Time
}

// FilterRelevant discovers candidates for idea, unions them with seeds,
// and classifies each unique candidate once. Seeds only contribute their
// identifiers; titles and abstracts always come from the metadata store or
// provider. Per-candidate failures land in the audit trail and never fail
// the run. The only error is ErrEmptyIdea.
func (f *Filter) FilterRelevant(ctx context.Context, idea types.ApplicationIdea, seeds []types.CandidatePaper) (Outcome, error) {
	domain := strings.TrimSpace(idea.Domain)
	if domain == "" {
		return Outcome{}, ErrEmptyIdea
	}

	var locators []string
	if f.Discover != nil {
		locators = f.Discover(ctx, domain, f.discoveryLimit())
	}

	seedIDs := make([]types.PaperID, 0, len(seeds))
	for _, s := range seeds {
		seedIDs = append(seedIDs, s.PaperID)
	}
	ids := candidateIDs(locators, seedIDs)

	f.logger().Info("filtering candidates",
		zap.String("domain", domain),
		zap.Int("discovered", len(locators)),
		zap.Int("seeds", len(seeds)),
		zap.Int("unique", len(ids)))

	var (
		mu       sync.Mutex
		audit    = make([]types.RelevanceDecision, 0, len(ids))
		accepted = make(map[types.PaperID]types.CandidatePaper)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers())
	for _, id := range ids {
		g.Go(func() error {
			d, cand := f.evaluate(gctx, idea, id)
			f.Metrics.IncRelevance(string(d.Outcome))

			mu.Lock()
			audit = append(audit, d)
			if d.Accepted {
				accepted[id] = cand
			}
			mu.Unlock()
			// Failures are recorded in the decision; returning them would
			// cancel the remaining candidates.
			return nil
		})
	}
	_ = g.Wait()

	// Completion order is arbitrary; report in candidate order.
	pos := make(map[types.PaperID]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.Slice(audit, func(i, j int) bool { return pos[audit[i].PaperID] < pos[audit[j].PaperID] })

	out := Outcome{
		Audit:      audit,
		Discovered: len(locators),
		Unique:     len(ids),
	}
	for _, d := range audit {
		if d.Accepted {
			out.Accepted = append(out.Accepted, accepted[d.PaperID])
		}
	}
	return out, nil
}

// candidateIDs normalizes the discovered locators, drops the malformed
// ones and unions the result with the seed identifiers. Each identifier
// appears once, in first-seen order.
func candidateIDs(locators []string, seeds []types.PaperID) []types.PaperID {
	seen := make(map[types.PaperID]bool, len(locators)+len(seeds))
	var ids []types.PaperID
	add := func(id types.PaperID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, loc := range locators {
		src, err := acquire.Normalize(loc)
		if err != nil || src.Type == acquire.TypeLocal {
			continue
		}
		add(src.PaperID)
	}
	for _, id := range seeds {
		if src, err := acquire.Normalize(id.String()); err == nil && src.Type != acquire.TypeLocal {
			id = src.PaperID
		}
		add(id)
	}
	return ids
}

// evaluate runs one candidate under its own timeout and always returns a
// decision.
func (f *Filter) evaluate(ctx context.Context, idea types.ApplicationIdea, id types.PaperID) (types.RelevanceDecision, types.CandidatePaper) {
	start := f.clock()
	ctx, cancel := context.WithTimeout(ctx, f.taskTimeout())
	defer cancel()

	d := types.RelevanceDecision{PaperID: id}
	finish := func(outcome types.RelevanceOutcome, reason string, err error) types.RelevanceDecision {
		d.Outcome = outcome
		d.Accepted = outcome == types.OutcomeAccepted
		d.Reason = reason
		if err != nil {
			d.Error = err.Error()
		}
		d.Duration = f.clock().Sub(start)
		return d
	}

	meta, cacheErr, err := f.metadata(ctx, id)
	if cacheErr != nil {
		d.Warning = "caching metadata: " + cacheErr.Error()
	}
	switch {
	case errors.Is(err, types.ErrNotFound):
		return finish(types.OutcomeSkipped, "no metadata record", nil), types.CandidatePaper{}
	case err != nil:
		f.logger().Warn("metadata lookup failed", zap.String("paper_id", id.String()), zap.Error(err))
		return finish(types.OutcomeRejected, "error: "+err.Error(), err), types.CandidatePaper{}
	case !meta.HasContent():
		return finish(types.OutcomeSkipped, "metadata lacks title or abstract", nil), types.CandidatePaper{}
	}

	cand := meta.Candidate()
	cand.PaperID = id

	if f.Classifier == nil {
		err := errors.New("no classifier configured")
		return finish(types.OutcomeRejected, "error: "+err.Error(), err), cand
	}
	d.ClassifierModel = f.Classifier.Model()

	v, err := f.Classifier.ClassifyRelevance(ctx, idea, meta.Title, meta.Abstract)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, ctx.Err())
		}
		f.logger().Warn("relevance classification failed", zap.String("paper_id", id.String()), zap.Error(err))
		return finish(types.OutcomeRejected, "error: "+err.Error(), err), cand
	}
	if v.Model != "" {
		d.ClassifierModel = v.Model
	}

	if v.Relevant {
		return finish(types.OutcomeAccepted, v.Reason, nil), cand
	}
	return finish(types.OutcomeRejected, v.Reason, nil), cand
}

// metadata returns cached metadata or fetches and caches it. A failed
// cache write is returned as cacheErr; the fetched record is still used.
func (f *Filter) metadata(ctx context.Context, id types.PaperID) (m types.Metadata, cacheErr, err error) {
	if f.Store != nil {
		cached, found, err := f.Store.GetMetadata(id)
		if err != nil {
			f.logger().Warn("cached metadata unreadable", zap.String("paper_id", id.String()), zap.Error(err))
		} else if found {
			return cached, nil, nil
		}
	}

	if f.Provider == nil {
		return types.Metadata{}, nil, fmt.Errorf("%w: no metadata provider configured", types.ErrNotFound)
	}
	m, err = f.Provider.FetchMetadata(ctx, id)
	if err != nil {
		return types.Metadata{}, nil, err
	}

	if f.Store != nil {
		if cacheErr = f.Store.PutMetadata(id, m); cacheErr != nil {
			f.logger().Warn("caching metadata failed", zap.String("paper_id", id.String()), zap.Error(cacheErr))
		}
	}
	return m, cacheErr, nil
}

func (f *Filter) workers() int {
	if f.Workers <= 0 {
		return DefaultWorkers
	}
	return f.Workers
}

func (f *Filter) taskTimeout() time.Duration {
	if f.TaskTimeout <= 0 {
		return DefaultTaskTimeout
	}
	return f.TaskTimeout
}

func (f *Filter) discoveryLimit() int {
	if f.DiscoveryLimit <= 0 {
		return DefaultDiscoveryLimit
	}
	return f.DiscoveryLimit
}

func (f *Filter) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

func (f *Filter) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}
