// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata fetches bibliographic records from Semantic Scholar.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/internal/httputil"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Base URLs. Declared as vars so tests can substitute an httptest server.
var (
	graphAPIBase           = "https://api.semanticscholar.org/graph/v1/paper/"
	recommendationsAPIBase = "https://api.semanticscholar.org/recommendations/v1/papers/forpaper/"
)

const paperFields = "paperId,corpusId,externalIds,url,title,abstract,venue,year," +
	"referenceCount,citationCount,influentialCitationCount,isOpenAccess,openAccessPdf," +
	"fieldsOfStudy,publicationDate,authors,tldr,citations.title,citations.externalIds"

const recommendationFields = "title,externalIds"

// Provider fetches metadata for a paper.
type Provider interface {
	FetchMetadata(ctx context.Context, id types.PaperID) (types.Metadata, error)
}

// SemanticScholar is the Semantic Scholar Graph API provider.
type SemanticScholar struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxRetries int

	RecommendationLimit int
	CitationLimit       int

	Log *zap.Logger
}

// New returns a provider configured from cfg.
func New(cfg types.MetadataConfig, httpCfg types.HTTPConfig, client *http.Client, log *zap.Logger) *SemanticScholar {
	return &SemanticScholar{
		Client:              client,
		APIKey:              cfg.APIKey,
		UserAgent:           httpCfg.UserAgent,
		MaxRetries:          httpCfg.MaxRetries,
		RecommendationLimit: cfg.RecommendationLimit,
		CitationLimit:       cfg.CitationLimit,
		Log:                 log,
	}
}

// FetchMetadata looks id up by arXiv ID or DOI. Papers known only by URL or
// local path have no record and yield types.ErrNotFound, as does a 404.
// A failed recommendation lookup leaves Recommendations empty.
func (s *SemanticScholar) FetchMetadata(ctx context.Context, id types.PaperID) (types.Metadata, error) {
	key, err := lookupKey(id)
	if err != nil {
		return types.Metadata{}, err
	}

	params := url.Values{"fields": {paperFields}}
	var p s2Paper
	if err := s.getJSON(ctx, graphAPIBase+key+"?"+params.Encode(), &p); err != nil {
		return types.Metadata{}, fmt.Errorf("fetching metadata for %s: %w", id, err)
	}

	m := p.toMetadata(id, s.CitationLimit)

	if p.PaperID != "" {
		recs, err := s.recommendations(ctx, p.PaperID)
		if err != nil {
			s.logger().Warn("recommendations unavailable",
				zap.String("paper_id", id.String()), zap.Error(err))
		} else {
			m.Recommendations = recs
		}
	}
	return m, nil
}

// lookupKey maps a PaperID to the Graph API's prefixed identifier.
func lookupKey(id types.PaperID) (string, error) {
	idType, norm := acquire.Classify(id.String())
	switch idType {
	case acquire.TypeArxiv:
		return "ARXIV:" + norm, nil
	case acquire.TypeDOI:
		return "DOI:" + norm, nil
	default:
		return "", fmt.Errorf("%w: no metadata source for %q", types.ErrNotFound, id)
	}
}

func (s *SemanticScholar) recommendations(ctx context.Context, s2ID string) ([]types.PaperRef, error) {
	limit := s.RecommendationLimit
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"fields": {recommendationFields},
		"limit":  {strconv.Itoa(limit)},
	}

	var rr struct {
		RecommendedPapers []s2Ref `json:"recommendedPapers"`
	}
	if err := s.getJSON(ctx, recommendationsAPIBase+url.PathEscape(s2ID)+"?"+params.Encode(), &rr); err != nil {
		return nil, err
	}

	refs := make([]types.PaperRef, 0, len(rr.RecommendedPapers))
	for _, r := range rr.RecommendedPapers {
		refs = append(refs, r.toRef())
	}
	return refs, nil
}

func (s *SemanticScholar) getJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, s.MaxRetries)
	if err != nil {
		return fmt.Errorf("%w: Semantic Scholar API request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: Semantic Scholar has no record", types.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: Semantic Scholar API returned HTTP %d", types.ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: parsing Semantic Scholar response: %v", types.ErrTransport, err)
	}
	return nil
}

func (s *SemanticScholar) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Semantic Scholar API JSON structures.
type s2Paper struct {
	PaperID                  string        `json:"paperId"`
	CorpusID                 int           `json:"corpusId"`
	ExternalIDs              s2ExternalIDs `json:"externalIds"`
	URL                      string        `json:"url"`
	Title                    string        `json:"title"`
	Abstract                 string        `json:"abstract"`
	Venue                    string        `json:"venue"`
	Year                     int           `json:"year"`
	ReferenceCount           int           `json:"referenceCount"`
	CitationCount            int           `json:"citationCount"`
	InfluentialCitationCount int           `json:"influentialCitationCount"`
	IsOpenAccess             bool          `json:"isOpenAccess"`
	OpenAccessPDF            *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
	FieldsOfStudy   []string   `json:"fieldsOfStudy"`
	PublicationDate string     `json:"publicationDate"`
	Authors         []s2Author `json:"authors"`
	TLDR            *struct {
		Text string `json:"text"`
	} `json:"tldr"`
	Citations []s2Ref `json:"citations"`
}

type s2Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type s2ExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type s2Ref struct {
	PaperID     string        `json:"paperId"`
	Title       string        `json:"title"`
	ExternalIDs s2ExternalIDs `json:"externalIds"`
}

func (r s2Ref) toRef() types.PaperRef {
	return types.PaperRef{
		PaperID: r.PaperID,
		ArxivID: r.ExternalIDs.ArXiv,
		Title:   strings.TrimSpace(r.Title),
	}
}

// toMetadata maps the response onto the stored schema. Lists are never nil
// so the JSON always carries every key.
func (p s2Paper) toMetadata(id types.PaperID, citationLimit int) types.Metadata {
	m := types.Metadata{
		PaperID:                  id,
		S2PaperID:                p.PaperID,
		Title:                    strings.TrimSpace(p.Title),
		Abstract:                 strings.TrimSpace(p.Abstract),
		Authors:                  make([]types.Author, 0, len(p.Authors)),
		Year:                     p.Year,
		PublicationDate:          p.PublicationDate,
		Venue:                    p.Venue,
		URL:                      p.URL,
		CitationCount:            p.CitationCount,
		ReferenceCount:           p.ReferenceCount,
		InfluentialCitationCount: p.InfluentialCitationCount,
		IsOpenAccess:             p.IsOpenAccess,
		FieldsOfStudy:            []string{},
		ExternalIDs: types.ExternalIDs{
			ArXiv:    p.ExternalIDs.ArXiv,
			DOI:      p.ExternalIDs.DOI,
			CorpusID: p.CorpusID,
		},
		Citations:       []types.PaperRef{},
		Recommendations: []types.PaperRef{},
	}
	if m.ExternalIDs.CorpusID == 0 {
		m.ExternalIDs.CorpusID = p.ExternalIDs.CorpusID
	}
	for _, a := range p.Authors {
		m.Authors = append(m.Authors, types.Author{AuthorID: a.AuthorID, Name: a.Name})
	}
	if p.FieldsOfStudy != nil {
		m.FieldsOfStudy = p.FieldsOfStudy
	}
	if p.OpenAccessPDF != nil {
		m.OpenAccessPDF = p.OpenAccessPDF.URL
	}
	if p.TLDR != nil {
		m.TLDR = p.TLDR.Text
	}
	if citationLimit <= 0 {
		citationLimit = 20
	}
	for i, c := range p.Citations {
		if i >= citationLimit {
			break
		}
		m.Citations = append(m.Citations, c.toRef())
	}
	return m
}
