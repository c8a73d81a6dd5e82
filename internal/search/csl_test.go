// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperlens/pkg/types"
)

func TestResultCSLArxiv(t *testing.T) {
	item := ResultCSL(types.SearchResult{
		Locator: "http://arxiv.org/abs/1706.03762v7",
		Title:   "Attention Is All You Need",
		Authors: []string{"Ashish Vaswani", "Prince"},
		Date:    time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "1706.03762", item.ID)
	assert.Equal(t, "article", item.Type)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", item.URL)
	assert.Empty(t, item.DOI)
	assert.Equal(t, []CSLName{{Given: "Ashish", Family: "Vaswani"}, {Literal: "Prince"}}, item.Author)
	require.NotNil(t, item.Issued)
	assert.Equal(t, [][]int{{2017, 6, 12}}, item.Issued.DateParts)
}

func TestResultCSLDOI(t *testing.T) {
	item := ResultCSL(types.SearchResult{Locator: "https://doi.org/10.18653/V1/N19-1423", Title: "BERT"})
	assert.Equal(t, "10.18653/v1/n19-1423", item.DOI)
	assert.Equal(t, "article-journal", item.Type)
	assert.Nil(t, item.Issued)
}

func TestCandidateCSL(t *testing.T) {
	item := CandidateCSL(types.CandidatePaper{PaperID: "2106.09685", Title: "LoRA", Authors: []string{"Edward J. Hu"}})
	assert.Equal(t, "2106.09685", item.ID)
	assert.Equal(t, []CSLName{{Given: "Edward J.", Family: "Hu"}}, item.Author)
}

func TestFormatCSL(t *testing.T) {
	out := Output{Results: []types.SearchResult{
		{Locator: "1810.04805", Title: "BERT"},
		{Title: "Unlocated"},
	}}
	var buf bytes.Buffer
	require.NoError(t, FormatCSL(out, &buf))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "1810.04805", items[0].ID)
	assert.Empty(t, items[1].ID)
	assert.True(t, strings.Contains(buf.String(), "URL: https://arxiv.org/abs/1810.04805"))
}

func TestQueryFileRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	q := Query{
		FreeText: "low-rank adaptation",
		Keywords: []string{"lora"},
		DateFrom: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	out := Output{
		Results:     []types.SearchResult{{Locator: "2106.09685", Title: "LoRA", Authors: []string{"Edward J. Hu"}, Rank: 1}},
		DupsRemoved: 1,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteQueryFile(fsys, "/q.yaml", q, out, now))

	qf, err := ReadQueryFile(fsys, "/q.yaml")
	require.NoError(t, err)
	assert.Equal(t, out.Results, qf.Results)
	assert.Equal(t, 1, qf.Summary.Total)
	assert.Equal(t, 1, qf.Summary.DuplicatesRemoved)
	assert.True(t, now.Equal(qf.Summary.Timestamp))

	back, err := qf.Query.ToQuery()
	require.NoError(t, err)
	assert.Equal(t, q.FreeText, back.FreeText)
	assert.Equal(t, q.Keywords, back.Keywords)
	assert.True(t, q.DateFrom.Equal(back.DateFrom))
	assert.True(t, back.DateTo.IsZero())
}

func TestQueryParamsBadDate(t *testing.T) {
	_, err := QueryParams{FreeText: "x", DateTo: "yesterday"}.ToQuery()
	assert.Error(t, err)
}

func TestReadQueryFileMissing(t *testing.T) {
	_, err := ReadQueryFile(afero.NewMemMapFs(), "/nope.yaml")
	assert.Error(t, err)
}
