// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Abstract string    `yaml:"abstract,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	DOI      string    `yaml:"DOI,omitempty"`
	URL      string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes search results as a CSL-YAML list to w.
func FormatCSL(out Output, w io.Writer) error {
	items := make([]CSLItem, len(out.Results))
	for i, r := range out.Results {
		items[i] = ResultCSL(r)
	}
	return WriteCSL(items, w)
}

// WriteCSL encodes items as a CSL-YAML list.
func WriteCSL(items []CSLItem, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// ResultCSL converts a SearchResult to a CSLItem.
func ResultCSL(r types.SearchResult) CSLItem {
	item := cslFor(r.Locator, r.Title, r.Authors)
	item.Abstract = r.Abstract
	if !r.Date.IsZero() {
		item.Issued = &CSLDate{
			DateParts: [][]int{{r.Date.Year(), int(r.Date.Month()), r.Date.Day()}},
		}
	}
	return item
}

// CandidateCSL converts a related paper from the application ledger.
func CandidateCSL(c types.CandidatePaper) CSLItem {
	item := cslFor(c.PaperID.String(), c.Title, c.Authors)
	item.Abstract = c.Abstract
	return item
}

func cslFor(locator, title string, authors []string) CSLItem {
	item := CSLItem{Type: "article", Title: title}

	src, err := acquire.Normalize(locator)
	if err != nil {
		item.ID = locator
	} else {
		item.ID = src.PaperID.String()
		item.URL = src.LandingURL()
		if src.Type == acquire.TypeDOI {
			item.DOI = src.Normalized
			item.Type = "article-journal"
		}
	}

	for _, a := range authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
