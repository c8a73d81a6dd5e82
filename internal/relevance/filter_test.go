// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/paperlens/internal/cache"
	"github.com/pdiddy/paperlens/internal/classify"
	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var idea = types.ApplicationIdea{Domain: "machine translation", SpecificUtility: "attention-only encoder-decoder"}

type fakeProvider struct {
	mu    sync.Mutex
	meta  map[types.PaperID]types.Metadata
	errs  map[types.PaperID]error
	calls map[types.PaperID]int
}

func newProvider() *fakeProvider {
	return &fakeProvider{
		meta:  map[types.PaperID]types.Metadata{},
		errs:  map[types.PaperID]error{},
		calls: map[types.PaperID]int{},
	}
}

func (p *fakeProvider) add(id types.PaperID, title, abstract string) {
	p.meta[id] = types.Metadata{
		PaperID:  id,
		Title:    title,
		Abstract: abstract,
		Authors:  []types.Author{{Name: "Author of " + title}},
	}
}

func (p *fakeProvider) FetchMetadata(_ context.Context, id types.PaperID) (types.Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[id]++
	if err, ok := p.errs[id]; ok {
		return types.Metadata{}, err
	}
	m, ok := p.meta[id]
	if !ok {
		return types.Metadata{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return m, nil
}

func (p *fakeProvider) callCount(id types.PaperID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

type fakeClassifier struct {
	fn    func(ctx context.Context, title string) (classify.Verdict, error)
	calls atomic.Int32
}

func (c *fakeClassifier) ClassifyRelevance(ctx context.Context, _ types.ApplicationIdea, title, _ string) (classify.Verdict, error) {
	c.calls.Add(1)
	return c.fn(ctx, title)
}

func (c *fakeClassifier) Model() string { return "fake-model" }

// acceptPrefix accepts titles starting with "Yes".
func acceptPrefix() *fakeClassifier {
	return &fakeClassifier{fn: func(_ context.Context, title string) (classify.Verdict, error) {
		if strings.HasPrefix(title, "Yes") {
			return classify.Verdict{Relevant: true, Reason: "on topic"}, nil
		}
		return classify.Verdict{Relevant: false, Reason: "off topic"}, nil
	}}
}

func discoverReturning(locators ...string) DiscoverFunc {
	return func(context.Context, string, int) []string { return locators }
}

func newStore() *cache.Store {
	return cache.New(afero.NewMemMapFs(), "/cache")
}

func auditIDs(out Outcome) []types.PaperID {
	ids := make([]types.PaperID, 0, len(out.Audit))
	for _, d := range out.Audit {
		ids = append(ids, d.PaperID)
	}
	return ids
}

func acceptedIDs(out Outcome) []types.PaperID {
	ids := make([]types.PaperID, 0, len(out.Accepted))
	for _, c := range out.Accepted {
		ids = append(ids, c.PaperID)
	}
	return ids
}

func TestEmptyIdea(t *testing.T) {
	f := &Filter{}
	_, err := f.FilterRelevant(context.Background(), types.ApplicationIdea{Domain: "  "}, nil)
	assert.ErrorIs(t, err, ErrEmptyIdea)
}

func TestDedupAcrossSourcesAndSeeds(t *testing.T) {
	const a, b, c, d = "2001.00001", "2001.00002", "2001.00003", "2001.00004"
	p := newProvider()
	for _, id := range []types.PaperID{a, b, c, d} {
		p.add(id, "Yes "+string(id), "abstract")
	}
	cls := acceptPrefix()

	f := &Filter{
		Discover: discoverReturning(
			"http://arxiv.org/abs/"+a+"v1",
			b,
			"arXiv:"+a,
			"https://arxiv.org/pdf/"+c+"v3.pdf",
		),
		Store:      newStore(),
		Provider:   p,
		Classifier: cls,
	}
	seeds := []types.CandidatePaper{{PaperID: b}, {PaperID: d}}

	out, err := f.FilterRelevant(context.Background(), idea, seeds)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Discovered)
	assert.Equal(t, 4, out.Unique)
	assert.ElementsMatch(t, []types.PaperID{a, b, c, d}, auditIDs(out))
	assert.ElementsMatch(t, []types.PaperID{a, b, c, d}, acceptedIDs(out))
	assert.EqualValues(t, 4, cls.calls.Load())
	for _, id := range []types.PaperID{a, b, c, d} {
		assert.Equal(t, 1, p.callCount(id), id)
	}
}

func TestDedupAcrossLocatorForms(t *testing.T) {
	const id = "1706.03762"
	p := newProvider()
	p.add(id, "Yes attention", "abstract")
	cls := acceptPrefix()

	f := &Filter{
		// The arXiv source reports abs URLs, OpenAlex reports the arXiv DOI.
		Discover: discoverReturning(
			"http://arxiv.org/abs/"+id+"v7",
			"https://doi.org/10.48550/arXiv."+id,
			"https://arxiv.org/abs/"+id+"?context=cs",
			"10.48550/arxiv."+id,
		),
		Store:      newStore(),
		Provider:   p,
		Classifier: cls,
	}

	out, err := f.FilterRelevant(context.Background(), idea, []types.CandidatePaper{{PaperID: "arXiv:" + id}})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Discovered)
	assert.Equal(t, 1, out.Unique)
	assert.Equal(t, []types.PaperID{id}, auditIDs(out))
	assert.Equal(t, []types.PaperID{id}, acceptedIDs(out))
	assert.EqualValues(t, 1, cls.calls.Load())
	assert.Equal(t, 1, p.callCount(id))
}

func TestMalformedLocatorsSkipped(t *testing.T) {
	p := newProvider()
	p.add("1706.03762", "Yes attention", "abstract")

	f := &Filter{
		Discover:   discoverReturning("", "not a locator", "1706.03762", "/tmp/local.pdf"),
		Provider:   p,
		Classifier: acceptPrefix(),
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Discovered)
	assert.Equal(t, 1, out.Unique)
	assert.Equal(t, []types.PaperID{"1706.03762"}, auditIDs(out))
}

func TestFailuresAreIsolated(t *testing.T) {
	p := newProvider()
	p.add("2001.00001", "Yes relevant", "abstract")
	p.add("2001.00002", "No irrelevant", "abstract")
	p.add("2001.00003", "Yes but classifier fails", "abstract")
	p.errs["2001.00004"] = fmt.Errorf("%w: HTTP 500", types.ErrTransport)
	p.add("2001.00005", "Yes no abstract", "")
	// 2001.00006 has no record at all.

	cls := &fakeClassifier{fn: func(_ context.Context, title string) (classify.Verdict, error) {
		switch {
		case strings.Contains(title, "fails"):
			return classify.Verdict{}, fmt.Errorf("%w: malformed JSON", types.ErrClassification)
		case strings.HasPrefix(title, "Yes"):
			return classify.Verdict{Relevant: true, Reason: "fits", Model: "m-1"}, nil
		default:
			return classify.Verdict{Relevant: false, Reason: "does not fit"}, nil
		}
	}}

	f := &Filter{
		Discover:   discoverReturning("2001.00001", "2001.00002", "2001.00003", "2001.00004", "2001.00005", "2001.00006"),
		Store:      newStore(),
		Provider:   p,
		Classifier: cls,
		Metrics:    metrics.New(),
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	require.Len(t, out.Audit, 6)

	byID := make(map[types.PaperID]types.RelevanceDecision)
	for _, d := range out.Audit {
		byID[d.PaperID] = d
	}

	assert.Equal(t, types.OutcomeAccepted, byID["2001.00001"].Outcome)
	assert.Equal(t, "m-1", byID["2001.00001"].ClassifierModel)
	assert.Equal(t, types.OutcomeRejected, byID["2001.00002"].Outcome)
	assert.Equal(t, "does not fit", byID["2001.00002"].Reason)
	assert.Equal(t, "fake-model", byID["2001.00002"].ClassifierModel)

	failed := byID["2001.00003"]
	assert.Equal(t, types.OutcomeRejected, failed.Outcome)
	assert.True(t, strings.HasPrefix(failed.Reason, "error: "), failed.Reason)
	assert.True(t, failed.Errored())

	fetchFailed := byID["2001.00004"]
	assert.Equal(t, types.OutcomeRejected, fetchFailed.Outcome)
	assert.Contains(t, fetchFailed.Error, "HTTP 500")

	assert.Equal(t, types.OutcomeSkipped, byID["2001.00005"].Outcome)
	assert.Equal(t, types.OutcomeSkipped, byID["2001.00006"].Outcome)
	assert.False(t, byID["2001.00006"].Errored())

	assert.Equal(t, []types.PaperID{"2001.00001"}, acceptedIDs(out))
	assert.Len(t, out.Rejected(), 3)
	assert.EqualValues(t, 3, cls.calls.Load(), "skipped candidates never reach the classifier")
}

func TestSeedsContributeOnlyIdentifiers(t *testing.T) {
	p := newProvider()
	p.add("1810.04805", "Yes BERT from provider", "We introduce BERT.")

	f := &Filter{Provider: p, Classifier: acceptPrefix()}
	seeds := []types.CandidatePaper{{PaperID: "1810.04805", Title: "stale seed title", Abstract: "stale"}}

	out, err := f.FilterRelevant(context.Background(), idea, seeds)
	require.NoError(t, err)
	require.Len(t, out.Accepted, 1)
	assert.Equal(t, "Yes BERT from provider", out.Accepted[0].Title)
	assert.Equal(t, []string{"Author of Yes BERT from provider"}, out.Accepted[0].Authors)
	assert.Equal(t, 0, out.Discovered)
}

func TestMetadataCacheUsedAndFilled(t *testing.T) {
	store := newStore()
	require.NoError(t, store.PutMetadata("2303.08774", types.Metadata{
		PaperID: "2303.08774", Title: "Yes cached GPT-4", Abstract: "We report GPT-4.",
	}))

	p := newProvider()
	p.add("2307.09288", "Yes fetched Llama 2", "We develop Llama 2.")

	f := &Filter{
		Discover:   discoverReturning("2303.08774", "2307.09288"),
		Store:      store,
		Provider:   p,
		Classifier: acceptPrefix(),
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.PaperID{"2303.08774", "2307.09288"}, acceptedIDs(out))

	assert.Equal(t, 0, p.callCount("2303.08774"), "cached metadata must not be refetched")
	assert.Equal(t, 1, p.callCount("2307.09288"))

	m, found, err := store.GetMetadata("2307.09288")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Yes fetched Llama 2", m.Title)
}

func TestMetadataWriteFailureDoesNotChangeClassification(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := newProvider()
	p.add("2010.11929", "Yes ViT", "An image is worth 16x16 words.")

	f := &Filter{
		Discover:   discoverReturning("2010.11929"),
		Store:      cache.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cache"),
		Provider:   p,
		Classifier: acceptPrefix(),
		Log:        zap.New(core),
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.PaperID{"2010.11929"}, acceptedIDs(out))
	assert.Equal(t, 1, logs.FilterMessage("caching metadata failed").Len())

	require.Len(t, out.Audit, 1)
	d := out.Audit[0]
	assert.True(t, d.Accepted)
	assert.False(t, d.Errored())
	assert.Contains(t, d.Warning, "caching metadata")
}

func TestTaskTimeoutRejectsOnlyTheSlowCandidate(t *testing.T) {
	p := newProvider()
	p.add("2106.09685", "Yes slow LoRA", "abstract")
	p.add("2103.00020", "Yes fast CLIP", "abstract")

	cls := &fakeClassifier{fn: func(ctx context.Context, title string) (classify.Verdict, error) {
		if strings.Contains(title, "slow") {
			<-ctx.Done()
			return classify.Verdict{}, ctx.Err()
		}
		return classify.Verdict{Relevant: true, Reason: "fits"}, nil
	}}

	f := &Filter{
		Discover:    discoverReturning("2106.09685", "2103.00020"),
		Provider:    p,
		Classifier:  cls,
		TaskTimeout: 20 * time.Millisecond,
	}
	start := time.Now()
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, []types.PaperID{"2103.00020"}, acceptedIDs(out))
	var slow types.RelevanceDecision
	for _, d := range out.Audit {
		if d.PaperID == "2106.09685" {
			slow = d
		}
	}
	assert.Equal(t, types.OutcomeRejected, slow.Outcome)
	assert.Contains(t, slow.Error, context.DeadlineExceeded.Error())
}

func TestWorkerBound(t *testing.T) {
	p := newProvider()
	var locators []string
	for i := 0; i < 12; i++ {
		id := types.PaperID(fmt.Sprintf("2401.%05d", i))
		p.add(id, "Yes paper", "abstract")
		locators = append(locators, string(id))
	}

	var inFlight, peak atomic.Int32
	cls := &fakeClassifier{fn: func(context.Context, string) (classify.Verdict, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return classify.Verdict{Relevant: true}, nil
	}}

	f := &Filter{
		Discover:   discoverReturning(locators...),
		Provider:   p,
		Classifier: cls,
		Workers:    3,
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	assert.Len(t, out.Accepted, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestDiscoverReceivesDomainAndLimit(t *testing.T) {
	var gotText string
	var gotLimit int
	f := &Filter{
		Discover: func(_ context.Context, text string, limit int) []string {
			gotText, gotLimit = text, limit
			return nil
		},
		DiscoveryLimit: 0,
	}
	out, err := f.FilterRelevant(context.Background(), types.ApplicationIdea{Domain: " robotics "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "robotics", gotText)
	assert.Equal(t, DefaultDiscoveryLimit, gotLimit)
	assert.Empty(t, out.Audit)
	assert.Empty(t, out.Accepted)
}

func TestNoClassifierRejects(t *testing.T) {
	p := newProvider()
	p.add("1706.03762", "Yes attention", "abstract")
	f := &Filter{Discover: discoverReturning("1706.03762"), Provider: p}

	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	require.Len(t, out.Audit, 1)
	assert.Equal(t, types.OutcomeRejected, out.Audit[0].Outcome)
	assert.Contains(t, out.Audit[0].Error, "no classifier")
	assert.Empty(t, out.Accepted)
}

func TestDurationUsesClock(t *testing.T) {
	p := newProvider()
	p.add("1706.03762", "Yes attention", "abstract")

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	f := &Filter{
		Discover:   discoverReturning("1706.03762"),
		Provider:   p,
		Classifier: acceptPrefix(),
		now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick = tick.Add(time.Second)
			return tick
		},
	}
	out, err := f.FilterRelevant(context.Background(), idea, nil)
	require.NoError(t, err)
	require.Len(t, out.Audit, 1)
	assert.Equal(t, time.Second, out.Audit[0].Duration)
}
