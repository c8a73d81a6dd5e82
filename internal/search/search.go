// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries discovery sources (arXiv, Semantic Scholar,
// OpenAlex) and returns unified, deduplicated results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/pkg/types"
)

// DefaultDiscoveryLimit is the number of hits requested per source when
// discovering candidates for an application idea.
const DefaultDiscoveryLimit = 10

// ErrEmptyQuery is returned when a query has no searchable terms.
var ErrEmptyQuery = errors.New("query is empty")

// Backend searches a single discovery source.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters.
type Query struct {
	FreeText string
	Author   string
	Keywords []string
	DateFrom time.Time
	DateTo   time.Time
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.FreeText) == "" && q.Author == "" && len(q.Keywords) == 0
}

// Output holds the results and dedup statistics.
type Output struct {
	Results       []types.SearchResult
	DupsRemoved   int
	BackendErrors []string
}

// Backends returns the sources enabled in cfg, in a fixed order.
func Backends(cfg types.SearchConfig, client *http.Client) []Backend {
	var out []Backend
	if cfg.EnableArxiv {
		out = append(out, &ArxivBackend{Client: client})
	}
	if cfg.EnableSemanticScholar {
		out = append(out, &SemanticScholarBackend{Client: client, APIKey: cfg.SemanticScholarAPIKey})
	}
	if cfg.EnableOpenAlex {
		out = append(out, &OpenAlexBackend{Client: client, Email: cfg.Email})
	}
	return out
}

// Search fans the query out to all backends concurrently, deduplicates the
// results, ranks them and returns the top cfg.MaxResults. A failing backend
// is recorded in BackendErrors and does not fail the search.
func Search(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, log *zap.Logger) (Output, error) {
	if query.IsEmpty() {
		return Output{}, ErrEmptyQuery
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}
	if log == nil {
		log = zap.NewNop()
	}

	perBackend, errs := fanOut(ctx, query, backends, cfg, log)

	var all []types.SearchResult
	for _, results := range perBackend {
		all = append(all, results...)
	}

	deduped, removed := deduplicate(all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Rank > deduped[j].Rank
	})
	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return Output{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: errs,
	}, nil
}

// Discover queries every backend with text and returns the raw locators
// they report, in backend order, each source bounded to limit hits. The
// locators are not normalized or deduplicated. Failing sources contribute
// nothing.
func Discover(ctx context.Context, backends []Backend, text string, limit int, log *zap.Logger) []string {
	if limit <= 0 {
		limit = DefaultDiscoveryLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := Query{FreeText: text}
	if q.IsEmpty() {
		return nil
	}

	perBackend, _ := fanOut(ctx, q, backends, types.SearchConfig{MaxResults: limit}, log)

	var locators []string
	for _, results := range perBackend {
		if len(results) > limit {
			results = results[:limit]
		}
		for _, r := range results {
			if r.Locator != "" {
				locators = append(locators, r.Locator)
			}
		}
	}
	return locators
}

// fanOut runs every backend concurrently. Results are slotted by backend
// index so the merge order does not depend on scheduling. Backend errors
// are collected, never returned to the group.
func fanOut(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, log *zap.Logger) ([][]types.SearchResult, []string) {
	results := make([][]types.SearchResult, len(backends))
	errs := make([]error, len(backends))

	var g errgroup.Group
	for i, b := range backends {
		g.Go(func() error {
			res, err := b.Search(ctx, query, cfg)
			if err != nil {
				errs[i] = err
				log.Warn("search backend failed", zap.String("backend", b.Name()), zap.Error(err))
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var msgs []string
	for i, err := range errs {
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", backends[i].Name(), err))
		}
	}
	return results, msgs
}

// positionRank is the position-based score shared by all backends: 1.0 for
// the first hit falling linearly to 0.1 for the last.
func positionRank(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// deduplicate merges results that share a normalized locator or title.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		key := dedupKey(r)
		if idx, ok := seen[key]; ok && key != "" {
			mergeInto(&deduped[idx], r)
			removed++
			continue
		}

		titleKey := "title:" + normalizeTitle(r.Title)
		if titleKey != "title:" {
			if idx, ok := seen[titleKey]; ok {
				mergeInto(&deduped[idx], r)
				removed++
				continue
			}
		}

		idx := len(deduped)
		deduped = append(deduped, r)
		if key != "" {
			seen[key] = idx
		}
		if titleKey != "title:" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

// dedupKey is the PaperID the locator normalizes to, so an abs URL from
// one source and a bare ID from another collapse together.
func dedupKey(r types.SearchResult) string {
	src, err := acquire.Normalize(r.Locator)
	if err != nil {
		return ""
	}
	return "id:" + src.PaperID.String()
}

// mergeInto fills empty fields of dst from src and keeps the higher rank.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if dst.Date.IsZero() && !src.Date.IsZero() {
		dst.Date = src.Date
	}
	if src.Rank > dst.Rank {
		dst.Rank = src.Rank
	}
	// arXiv locators download directly; prefer them.
	if t, _ := acquire.Classify(src.Locator); t == acquire.TypeArxiv {
		if dt, _ := acquire.Classify(dst.Locator); dt != acquire.TypeArxiv {
			dst.Locator = src.Locator
		}
	}
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Locator")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range out.Results {
		year := ""
		if !r.Date.IsZero() {
			year = fmt.Sprintf("%d", r.Date.Year())
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), year, r.Rank, r.Locator)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
