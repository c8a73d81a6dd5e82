// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/paperlens/internal/httputil"
	"github.com/pdiddy/paperlens/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// --- mock backend ---

type mockBackend struct {
	name    string
	results []types.SearchResult
	err     error
	calls   atomic.Int32
	gotCfg  types.SearchConfig
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Search(_ context.Context, _ Query, cfg types.SearchConfig) ([]types.SearchResult, error) {
	m.calls.Add(1)
	m.gotCfg = cfg
	return m.results, m.err
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{MaxResults: 20, UserAgent: "test/0.1"}
}

// --- Query ---

func TestQueryIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty", Query{}, true},
		{"whitespace", Query{FreeText: "   "}, true},
		{"free text", Query{FreeText: "attention"}, false},
		{"author only", Query{Author: "Smith"}, false},
		{"keywords only", Query{Keywords: []string{"ml"}}, false},
		{"date only is empty", Query{DateFrom: time.Now()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- Deduplication ---

func TestDeduplicateByLocator(t *testing.T) {
	results := []types.SearchResult{
		{Locator: "http://arxiv.org/abs/2301.07041v1", Title: "Paper A", Source: "arxiv", Rank: 0.9},
		{Locator: "2301.07041", Title: "Paper A (from S2)", Source: "semantic_scholar", Rank: 0.95},
		{Locator: "2301.99999", Title: "Paper B", Source: "arxiv", Rank: 0.7},
	}

	deduped, removed := deduplicate(results)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(deduped) != 2 {
		t.Fatalf("len(deduped) = %d, want 2", len(deduped))
	}
	if deduped[0].Rank != 0.95 {
		t.Errorf("Rank = %f, want the higher 0.95", deduped[0].Rank)
	}
	if deduped[0].Source != "arxiv,semantic_scholar" {
		t.Errorf("Source = %q", deduped[0].Source)
	}
}

func TestDeduplicateByTitle(t *testing.T) {
	results := []types.SearchResult{
		{Locator: "10.1234/abc", Title: "Attention Is All You Need!", Source: "openalex"},
		{Locator: "1706.03762", Title: "attention is all you need", Source: "arxiv"},
	}

	deduped, removed := deduplicate(results)
	if removed != 1 || len(deduped) != 1 {
		t.Fatalf("removed = %d, len = %d; want 1, 1", removed, len(deduped))
	}
	if deduped[0].Locator != "1706.03762" {
		t.Errorf("Locator = %q, want arXiv locator preferred", deduped[0].Locator)
	}
}

func TestDeduplicateKeepsUnlocatedResults(t *testing.T) {
	results := []types.SearchResult{
		{Title: "One"},
		{Title: "Two"},
	}
	deduped, removed := deduplicate(results)
	if removed != 0 || len(deduped) != 2 {
		t.Errorf("removed = %d, len = %d; want 0, 2", removed, len(deduped))
	}
}

func TestMergeInto(t *testing.T) {
	dst := types.SearchResult{Locator: "10.1/x", Source: "openalex", Rank: 0.5}
	src := types.SearchResult{
		Locator:  "2005.14165",
		Title:    "Language Models are Few-Shot Learners",
		Authors:  []string{"Tom B. Brown"},
		Abstract: "abstract",
		Date:     time.Date(2020, 5, 28, 0, 0, 0, 0, time.UTC),
		Source:   "arxiv",
		Rank:     0.8,
	}
	mergeInto(&dst, src)

	if dst.Title != src.Title || dst.Abstract != src.Abstract || len(dst.Authors) != 1 {
		t.Errorf("empty fields not filled: %+v", dst)
	}
	if !dst.Date.Equal(src.Date) {
		t.Errorf("Date = %v", dst.Date)
	}
	if dst.Rank != 0.8 {
		t.Errorf("Rank = %f, want 0.8", dst.Rank)
	}
	if dst.Locator != "2005.14165" {
		t.Errorf("Locator = %q, want arXiv locator", dst.Locator)
	}
	if dst.Source != "openalex,arxiv" {
		t.Errorf("Source = %q", dst.Source)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  BERT:  Pre-training of   Deep  ", "bert pretraining of deep"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPositionRank(t *testing.T) {
	if got := positionRank(0, 1); got != 1.0 {
		t.Errorf("single = %f", got)
	}
	if got := positionRank(0, 10); got != 1.0 {
		t.Errorf("first = %f", got)
	}
	if got := positionRank(9, 10); got < 0.0999 || got > 0.1001 {
		t.Errorf("last = %f, want 0.1", got)
	}
}

// --- Search ---

func TestSearchEmptyQuery(t *testing.T) {
	_, err := Search(context.Background(), Query{}, []Backend{&mockBackend{name: "a"}}, testCfg(), nil)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchNoBackends(t *testing.T) {
	if _, err := Search(context.Background(), Query{FreeText: "x"}, nil, testCfg(), nil); err == nil {
		t.Error("expected error with no backends")
	}
}

func TestSearchContinuesAfterBackendFailure(t *testing.T) {
	good := &mockBackend{name: "good", results: []types.SearchResult{{Locator: "1706.03762", Title: "A", Rank: 1}}}
	bad := &mockBackend{name: "bad", err: fmt.Errorf("boom")}

	out, err := Search(context.Background(), Query{FreeText: "x"}, []Backend{bad, good}, testCfg(), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(out.Results))
	}
	if len(out.BackendErrors) != 1 || !strings.HasPrefix(out.BackendErrors[0], "bad:") {
		t.Errorf("BackendErrors = %v", out.BackendErrors)
	}
}

func TestSearchDedupRankAndLimit(t *testing.T) {
	a := &mockBackend{name: "arxiv", results: []types.SearchResult{
		{Locator: "1706.03762", Title: "Attention", Rank: 0.4},
		{Locator: "1810.04805", Title: "BERT", Rank: 0.9},
		{Locator: "2005.14165", Title: "GPT-3", Rank: 0.6},
	}}
	s := &mockBackend{name: "semantic_scholar", results: []types.SearchResult{
		{Locator: "1706.03762", Title: "Attention", Rank: 1.0},
	}}
	cfg := testCfg()
	cfg.MaxResults = 2

	out, err := Search(context.Background(), Query{FreeText: "x"}, []Backend{a, s}, cfg, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.DupsRemoved != 1 {
		t.Errorf("DupsRemoved = %d, want 1", out.DupsRemoved)
	}
	if len(out.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(out.Results))
	}
	if out.Results[0].Locator != "1706.03762" || out.Results[1].Locator != "1810.04805" {
		t.Errorf("order = %q, %q", out.Results[0].Locator, out.Results[1].Locator)
	}
}

// --- Discover ---

func TestDiscoverBoundsEachSource(t *testing.T) {
	var many []types.SearchResult
	for i := 0; i < 15; i++ {
		many = append(many, types.SearchResult{Locator: fmt.Sprintf("2401.%05d", i)})
	}
	a := &mockBackend{name: "a", results: many}
	b := &mockBackend{name: "b", results: []types.SearchResult{{Locator: "1706.03762"}, {Locator: ""}}}

	got := Discover(context.Background(), []Backend{a, b}, "protein folding", 10, nil)
	if len(got) != 11 {
		t.Fatalf("len = %d, want 11: %v", len(got), got)
	}
	if got[0] != "2401.00000" || got[10] != "1706.03762" {
		t.Errorf("locators not in backend order: %v", got)
	}
	if a.gotCfg.MaxResults != 10 {
		t.Errorf("backend asked for %d results, want 10", a.gotCfg.MaxResults)
	}
}

func TestDiscoverToleratesFailures(t *testing.T) {
	bad := &mockBackend{name: "bad", err: errors.New("down")}
	good := &mockBackend{name: "good", results: []types.SearchResult{{Locator: "1810.04805"}}}

	got := Discover(context.Background(), []Backend{bad, good}, "nlp", 0, nil)
	if len(got) != 1 || got[0] != "1810.04805" {
		t.Errorf("got %v", got)
	}
	if bad.calls.Load() != 1 {
		t.Errorf("bad backend called %d times", bad.calls.Load())
	}
}

func TestDiscoverEmptyText(t *testing.T) {
	b := &mockBackend{name: "a"}
	if got := Discover(context.Background(), []Backend{b}, "  ", 10, nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if b.calls.Load() != 0 {
		t.Error("backend should not be queried for empty text")
	}
}

func TestBackendsFromConfig(t *testing.T) {
	cfg := types.SearchConfig{EnableArxiv: true, EnableOpenAlex: true, Email: "me@example.com"}
	got := Backends(cfg, http.DefaultClient)
	if len(got) != 2 || got[0].Name() != "arxiv" || got[1].Name() != "openalex" {
		t.Fatalf("backends = %v", got)
	}
	if oa := got[1].(*OpenAlexBackend); oa.Email != "me@example.com" {
		t.Errorf("Email = %q", oa.Email)
	}
}

// --- arXiv backend ---

const sampleArxivSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
      You Need</title>
    <summary>The dominant sequence transduction models...</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
    <published>2018-10-11T00:00:00Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
  <entry>
    <id>not-an-arxiv-id</id>
    <title>Broken</title>
  </entry>
</feed>`

func TestArxivBackendSearch(t *testing.T) {
	var gotQuery, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleArxivSearchXML)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), Query{FreeText: "attention"}, testCfg())
	if err != nil {
		t.Fatalf("ArxivBackend.Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	r := results[0]
	if r.Locator != "http://arxiv.org/abs/1706.03762v7" {
		t.Errorf("Locator = %q", r.Locator)
	}
	if r.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", r.Title)
	}
	if len(r.Authors) != 2 {
		t.Errorf("len(Authors) = %d, want 2", len(r.Authors))
	}
	if r.Rank != 1.0 || results[1].Rank >= r.Rank {
		t.Errorf("ranks = %f, %f", r.Rank, results[1].Rank)
	}
	if !strings.Contains(gotQuery, "search_query=all:attention") {
		t.Errorf("query = %q", gotQuery)
	}
	if gotUA != "test/0.1" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestArxivBackendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	b := &ArxivBackend{Client: ts.Client()}
	if _, err := b.Search(context.Background(), Query{FreeText: "x"}, testCfg()); err == nil {
		t.Error("expected error on HTTP 500")
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.12345", "2301.12345"},
		{"https://example.com/paper", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.input); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"free text", Query{FreeText: "protein folding"}, "all:protein+folding"},
		{"author", Query{Author: "Geoffrey Hinton"}, "au:Geoffrey+Hinton"},
		{"combined", Query{FreeText: "attention", Keywords: []string{"nlp"}}, "all:attention+AND+all:nlp"},
		{"empty", Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.query); got != tt.want {
				t.Errorf("buildArxivQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmittedRange(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := submittedRange(from, time.Time{}); got != "submittedDate:[202001010000+TO+299912312359]" {
		t.Errorf("got %q", got)
	}
}

// --- output ---

func TestFormatTable(t *testing.T) {
	out := Output{
		Results: []types.SearchResult{{
			Locator: "1706.03762",
			Title:   "Attention Is All You Need",
			Authors: []string{"Ashish Vaswani", "Noam Shazeer"},
			Date:    time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC),
			Rank:    1,
		}},
		DupsRemoved: 2,
	}
	var buf bytes.Buffer
	FormatTable(out, &buf)
	s := buf.String()
	for _, want := range []string{"Attention Is All You Need", "Ashish Vaswani et al.", "2017", "1706.03762", "(2 duplicates removed)"} {
		if !strings.Contains(s, want) {
			t.Errorf("table missing %q:\n%s", want, s)
		}
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(Output{}, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	out := Output{Results: []types.SearchResult{{Locator: "1810.04805", Title: "BERT"}}}
	var buf bytes.Buffer
	if err := FormatJSON(out, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var got []types.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Locator != "1810.04805" {
		t.Errorf("got %+v", got)
	}
}

func TestTruncateIsRuneSafe(t *testing.T) {
	if got := truncate("ééééé", 4); got != "é..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
