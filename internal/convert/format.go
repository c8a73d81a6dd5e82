// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const documentTitle = "# Research Paper"

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	blankLines     = regexp.MustCompile(`\n[ \t]*\n`)
	numberedHeader = regexp.MustCompile(`^\d+\.?\s+[A-Z]`)
	romanHeader    = regexp.MustCompile(`^[IVX]+\.?\s+[A-Z]`)
)

// FormatMarkdown renders per-page text as Markdown: a document title, a
// "## Page N" header before each page that has text, and the page's text
// blocks separated by blank lines. Lines that look like section headings
// become level-three headers. The output depends only on the input.
func FormatMarkdown(pages []string) string {
	parts := []string{documentTitle + "\n"}
	for i, page := range pages {
		blocks := pageBlocks(page)
		if len(blocks) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("\n## Page %d\n", i+1))
		parts = append(parts, strings.Join(blocks, "\n\n"))
	}
	return formatHeadings(strings.Join(parts, "\n"))
}

// pageBlocks splits a page at blank lines and drops empty blocks.
func pageBlocks(page string) []string {
	page = strings.ReplaceAll(page, "\r\n", "\n")
	var blocks []string
	for _, b := range blankLines.Split(page, -1) {
		if b = strings.TrimSpace(b); b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func formatHeadings(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch {
		case s == "":
			out = append(out, "")
		case isUpper(s) && len(strings.Fields(s)) > 1 && len(s) < 100:
			out = append(out, "\n### "+titleCase(s)+"\n")
		case numberedHeader.MatchString(s), romanHeader.MatchString(s):
			out = append(out, "\n### "+s+"\n")
		default:
			out = append(out, s)
		}
	}

	return excessNewlines.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
}

// isUpper reports whether s has at least one cased letter and no lowercase
// ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "RELATED WORK" becomes "Related Work".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if inWord {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			inWord = true
			continue
		}
		b.WriteRune(r)
		inWord = false
	}
	return b.String()
}

// hasBody reports whether md contains anything beyond the document title.
func hasBody(md string) bool {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(md), documentTitle)) != ""
}
