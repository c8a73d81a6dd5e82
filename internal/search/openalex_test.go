// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/pkg/types"
)

// OpenAlex reports arXiv preprints under the DOI arXiv registers for them.
const openAlexHits = `{"meta": {"count": 3}, "results": [
  {"title": "Attention is All you Need", "doi": "https://doi.org/10.48550/arxiv.1706.03762",
   "publication_date": "2017-06-12",
   "authorships": [{"author": {"display_name": "Ashish Vaswani"}}, {"author": {"display_name": ""}}],
   "abstract_inverted_index": {"The": [0], "dominant": [1], "models": [2]}},
  {"title": "Convolutional Sequence to Sequence Learning", "doi": "https://doi.org/10.5555/conv.s2s",
   "publication_year": 2017},
  {"title": "Untitled dataset"}
]}`

func TestOpenAlexDiscoveryRequest(t *testing.T) {
	tests := []struct {
		name        string
		maxResults  int
		wantPerPage string
	}{
		{"default bound", 0, "10"},
		{"configured", 25, "25"},
		{"capped", 500, "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := jsonServer(t, &openAlexSearchBase, http.StatusOK, `{"results":[]}`)

			b := &OpenAlexBackend{Client: http.DefaultClient, Email: "me@example.org"}
			_, err := b.Search(context.Background(), Query{
				FreeText: "machine translation",
				DateFrom: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
				DateTo:   time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
			}, types.SearchConfig{MaxResults: tt.maxResults, UserAgent: "paperlens/test"})
			require.NoError(t, err)

			q, h := rec.get()
			assert.Equal(t, "machine translation", q.Get("search"))
			assert.Equal(t, tt.wantPerPage, q.Get("per_page"))
			assert.Equal(t, "from_publication_date:2017-01-01,to_publication_date:2019-12-31", q.Get("filter"))
			assert.Equal(t, "me@example.org", q.Get("mailto"))
			assert.Equal(t, "paperlens/test", h.Get("User-Agent"))
		})
	}
}

func TestOpenAlexLocators(t *testing.T) {
	jsonServer(t, &openAlexSearchBase, http.StatusOK, openAlexHits)

	b := &OpenAlexBackend{Client: http.DefaultClient}
	got, err := b.Search(context.Background(), Query{FreeText: "translation"}, types.SearchConfig{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "10.48550/arxiv.1706.03762", first.Locator)
	src, err := acquire.Normalize(first.Locator)
	require.NoError(t, err)
	assert.Equal(t, acquire.TypeArxiv, src.Type, "arXiv DOI resolves to the arXiv paper")
	assert.Equal(t, types.PaperID("1706.03762"), src.PaperID)
	assert.Equal(t, "The dominant models", first.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani"}, first.Authors)
	assert.Equal(t, time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC), first.Date)
	assert.InDelta(t, 1.0, first.Rank, 1e-9)

	assert.Equal(t, "10.5555/conv.s2s", got[1].Locator)
	assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), got[1].Date)
	assert.InDelta(t, 0.55, got[1].Rank, 1e-9)

	assert.Empty(t, got[2].Locator, "works without a DOI have no locator")
	assert.InDelta(t, 0.1, got[2].Rank, 1e-9)
}

func TestSearchMergesOpenAlexArxivDOIWithArxivHit(t *testing.T) {
	jsonServer(t, &openAlexSearchBase, http.StatusOK, openAlexHits)

	arxiv := &mockBackend{name: "arxiv", results: []types.SearchResult{{
		Locator: "http://arxiv.org/abs/1706.03762v7",
		Title:   "Attention Is All You Need (preprint)",
		Source:  "arxiv",
		Rank:    0.8,
	}}}
	openAlex := &OpenAlexBackend{Client: http.DefaultClient}

	out, err := Search(context.Background(), Query{FreeText: "attention"}, []Backend{arxiv, openAlex}, testCfg(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.DupsRemoved)
	require.Len(t, out.Results, 3)
	top := out.Results[0]
	assert.Equal(t, "http://arxiv.org/abs/1706.03762v7", top.Locator, "arXiv locator is kept")
	assert.Equal(t, "arxiv,openalex", top.Source)
	assert.InDelta(t, 1.0, top.Rank, 1e-9)
	assert.Equal(t, "The dominant models", top.Abstract)
}

func TestOpenAlexFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		query  Query
	}{
		{"forbidden", http.StatusForbidden, `{"error":"no"}`, Query{FreeText: "x"}},
		{"malformed body", http.StatusOK, `{"results": [`, Query{FreeText: "x"}},
		{"empty query", http.StatusOK, `{"results":[]}`, Query{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonServer(t, &openAlexSearchBase, tt.status, tt.body)
			b := &OpenAlexBackend{Client: http.DefaultClient}
			got, err := b.Search(context.Background(), tt.query, types.SearchConfig{})
			assert.Error(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"empty", nil, ""},
		{"repeated word", map[string][]int{"attention": {0, 3}, "is": {1}, "all": {2}}, "attention is all attention"},
		{"out of order positions", map[string][]int{"need": {4}, "you": {3}, "Attention": {0}, "is": {1}, "all": {2}}, "Attention is all you need"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}
