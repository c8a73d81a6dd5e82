// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire normalizes paper locators, checks that they refer to a
// real paper, and fetches document bytes for the extractor.
package acquire

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/httputil"
	"github.com/pdiddy/paperlens/pkg/types"
)

// maxDocumentBytes bounds a single download.
const maxDocumentBytes = 200 << 20

// Resolution is a validated Source plus whatever bibliographic details the
// existence check returned.
type Resolution struct {
	Source
	Title     string
	Authors   []string
	Abstract  string
	Published time.Time
}

// Resolver validates that a locator refers to an existing paper.
type Resolver struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int

	// Fs is consulted for local paths. Nil means the OS filesystem.
	Fs afero.Fs
}

// Resolve normalizes locator and checks that the paper exists: arXiv IDs
// against the arXiv API, DOIs against CrossRef, local paths on disk. URLs
// are accepted without a check. A paper that does not exist yields
// types.ErrNotFound; an unreachable checker yields types.ErrTransport.
func (r *Resolver) Resolve(ctx context.Context, locator string) (Resolution, error) {
	src, err := Normalize(locator)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Source: src}

	switch src.Type {
	case TypeArxiv:
		err = r.fetchArxiv(ctx, src.Normalized, &res)
	case TypeDOI:
		err = r.fetchCrossRef(ctx, src.Normalized, &res)
	case TypeLocal:
		var ok bool
		ok, err = afero.Exists(fsOrOS(r.Fs), src.Normalized)
		if err == nil && !ok {
			err = fmt.Errorf("%w: no file at %s", types.ErrNotFound, src.Normalized)
		}
	}
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// Downloader fetches document bytes for a Source.
type Downloader struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int

	// Email is sent to OpenAlex as the polite-pool mailto parameter.
	Email string

	// Fs is read for local paths. Nil means the OS filesystem.
	Fs afero.Fs

	Log *zap.Logger
}

// Download returns the PDF bytes for src. For DOIs it asks OpenAlex for an
// open-access copy first and falls back to the doi.org resolver. A 404 is
// types.ErrNotFound; any other failure is types.ErrTransport.
func (d *Downloader) Download(ctx context.Context, src Source) ([]byte, error) {
	if src.Type == TypeLocal {
		data, err := afero.ReadFile(fsOrOS(d.Fs), src.Normalized)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no file at %s", types.ErrNotFound, src.Normalized)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", types.ErrTransport, src.Normalized, err)
		}
		return data, nil
	}

	pdfURL := src.PDFURL()
	if src.Type == TypeDOI {
		oaURL, err := resolveOpenAlex(ctx, d.Client, src.Normalized, d.Email, d.UserAgent)
		switch {
		case err != nil:
			d.logger().Debug("OpenAlex lookup failed", zap.String("doi", src.Normalized), zap.Error(err))
		case oaURL != "":
			pdfURL = oaURL
		}
	}
	if pdfURL == "" {
		return nil, fmt.Errorf("%w: cannot resolve PDF URL for %q", types.ErrInvalidIdentifier, src.Normalized)
	}

	d.logger().Info("downloading document",
		zap.String("paper_id", src.PaperID.String()),
		zap.String("type", src.Type.String()),
		zap.String("url", pdfURL))

	return d.fetch(ctx, pdfURL)
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, d.Client, req, d.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", types.ErrTransport, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: HTTP 404 from %s", types.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d from %s", types.ErrTransport, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body from %s: %v", types.ErrTransport, url, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("%w: document from %s exceeds %d bytes", types.ErrTransport, url, maxDocumentBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body from %s", types.ErrTransport, url)
	}
	return data, nil
}

func (d *Downloader) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func fsOrOS(f afero.Fs) afero.Fs {
	if f == nil {
		return afero.NewOsFs()
	}
	return f
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// fetchArxiv looks the ID up in the arXiv API. An empty feed, or the single
// "Error" entry arXiv returns for malformed IDs, means the paper does not
// exist.
func (r *Resolver) fetchArxiv(ctx context.Context, arxivID string, res *Resolution) error {
	apiURL := fmt.Sprintf("%s?id_list=%s", arxivAPIBase, arxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, r.Client, req, r.MaxRetries)
	if err != nil {
		return fmt.Errorf("%w: arXiv API request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: arXiv API returned HTTP %d", types.ErrTransport, resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("%w: parsing arXiv response: %v", types.ErrTransport, err)
	}

	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Title) == "Error" {
		return fmt.Errorf("%w: no arXiv entry for %s", types.ErrNotFound, arxivID)
	}

	entry := feed.Entries[0]
	res.Title = strings.Join(strings.Fields(entry.Title), " ")
	res.Abstract = strings.TrimSpace(entry.Summary)
	for _, a := range entry.Authors {
		res.Authors = append(res.Authors, strings.TrimSpace(a.Name))
	}
	if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
		res.Published = t
	}
	return nil
}

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title    []string         `json:"title"`
	Abstract string           `json:"abstract"`
	Author   []crossrefAuthor `json:"author"`
	Created  crossrefDate     `json:"created"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (r *Resolver) fetchCrossRef(ctx context.Context, doi string, res *Resolution) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+doi, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, r.Client, req, r.MaxRetries)
	if err != nil {
		return fmt.Errorf("%w: CrossRef API request: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: no CrossRef record for %s", types.ErrNotFound, doi)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: CrossRef API returned HTTP %d", types.ErrTransport, resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("%w: parsing CrossRef response: %v", types.ErrTransport, err)
	}

	if len(cr.Message.Title) > 0 {
		res.Title = cr.Message.Title[0]
	}
	res.Abstract = cr.Message.Abstract
	for _, a := range cr.Message.Author {
		res.Authors = append(res.Authors, strings.TrimSpace(a.Given+" "+a.Family))
	}
	if len(cr.Message.Created.DateParts) > 0 && len(cr.Message.Created.DateParts[0]) >= 3 {
		parts := cr.Message.Created.DateParts[0]
		res.Published = time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	}
	return nil
}
