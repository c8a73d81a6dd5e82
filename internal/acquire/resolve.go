// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/paperlens/pkg/types"
)

// IdentifierType classifies an input locator.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
	TypeLocal
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	case TypeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivAbsBase    = "https://arxiv.org/abs/"
	arxivPDFBase    = "https://arxiv.org/pdf/"
	arxivAPIBase    = "https://export.arxiv.org/api/query"
	doiBase         = "https://doi.org/"
	crossrefAPIBase = "https://api.crossref.org/works/"
)

// arxivPattern matches bare arXiv IDs: "2301.07041", "arXiv:2301.07041",
// "2301.07041v2". The version suffix is not captured.
var arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5})(?:v\d+)?$`)

// arxivPathPattern extracts the ID from the path of arxiv.org abs and pdf
// pages, with or without version and .pdf suffix.
var arxivPathPattern = regexp.MustCompile(`^/(?:abs|pdf)/(\d{4}\.\d{4,5})(?:v\d+)?(?:\.pdf)?/?$`)

// arxivHosts are the hosts that serve arXiv abs and pdf pages.
var arxivHosts = map[string]bool{
	"arxiv.org":        true,
	"www.arxiv.org":    true,
	"export.arxiv.org": true,
}

// arxivDOIPattern matches the DOIs arXiv registers for its papers,
// "10.48550/arxiv.1706.03762", after lower-casing.
var arxivDOIPattern = regexp.MustCompile(`^10\.48550/arxiv\.(\d{4}\.\d{4,5})(?:v\d+)?$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// doiPrefixes are stripped before matching doiPattern.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// Classify determines the identifier type and returns the normalized form.
// Every locator form of an arXiv paper (bare id, abs or pdf URL, arXiv DOI)
// normalizes to the bare id without version. Other DOIs lose any resolver
// prefix and are lower-cased; URLs lose their fragment.
func Classify(locator string) (IdentifierType, string) {
	locator = strings.TrimSpace(locator)

	if m := arxivPattern.FindStringSubmatch(locator); m != nil {
		return TypeArxiv, m[1]
	}

	doi := locator
	for _, p := range doiPrefixes {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			doi = doi[len(p):]
			break
		}
	}
	if doiPattern.MatchString(doi) {
		doi = strings.ToLower(doi)
		if m := arxivDOIPattern.FindStringSubmatch(doi); m != nil {
			return TypeArxiv, m[1]
		}
		return TypeDOI, doi
	}

	if u, err := url.Parse(locator); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		if arxivHosts[strings.ToLower(u.Hostname())] {
			if m := arxivPathPattern.FindStringSubmatch(u.Path); m != nil {
				return TypeArxiv, m[1]
			}
		}
		u.Fragment, u.RawFragment = "", ""
		return TypeURL, u.String()
	}

	if strings.EqualFold(filepath.Ext(locator), ".pdf") {
		return TypeLocal, filepath.Clean(locator)
	}

	return TypeUnknown, locator
}

// Source is a normalized locator: where the document comes from and the
// PaperID its artifacts are cached under.
type Source struct {
	Type       IdentifierType
	Normalized string
	PaperID    types.PaperID
}

// Normalize classifies locator and derives its PaperID. Unrecognized input
// returns types.ErrInvalidIdentifier.
func Normalize(locator string) (Source, error) {
	idType, normalized := Classify(locator)
	if idType == TypeUnknown {
		return Source{}, fmt.Errorf("%w: unrecognized locator %q", types.ErrInvalidIdentifier, locator)
	}
	return Source{
		Type:       idType,
		Normalized: normalized,
		PaperID:    types.PaperID(Slug(idType, normalized)),
	}, nil
}

// PDFURL returns the download URL for the source.
func (s Source) PDFURL() string { return PDFURL(s.Type, s.Normalized) }

// LandingURL returns the page a reader would open for the source.
func (s Source) LandingURL() string {
	switch s.Type {
	case TypeArxiv:
		return arxivAbsBase + s.Normalized
	case TypeDOI:
		return doiBase + s.Normalized
	default:
		return s.Normalized
	}
}

// Slug returns the PaperID string for the identifier. arXiv IDs and DOIs are
// used as-is (the artifact store makes them filesystem safe); URLs use a
// hash of the whole URL; local paths use a hash of the cleaned absolute path.
func Slug(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv, TypeDOI:
		return normalized
	case TypeURL:
		return hashSlug("url", normalized)
	case TypeLocal:
		abs, err := filepath.Abs(normalized)
		if err != nil {
			abs = normalized
		}
		return hashSlug("local", abs)
	default:
		return "unknown"
	}
}

// PDFURL returns the download URL for the identifier. For arXiv, this is
// the arxiv.org PDF endpoint. For DOI, this is the doi.org resolver
// (the HTTP client follows redirects). For direct URLs, it returns as-is.
func PDFURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivPDFBase + normalized
	case TypeDOI:
		return doiBase + normalized
	case TypeURL:
		return normalized
	default:
		return ""
	}
}

func hashSlug(prefix, s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%s-%x", prefix, h[:8])
}
