// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// NativeConverter reads the text layer in-process with ledongthuc/pdf.
type NativeConverter struct{}

func (NativeConverter) Name() string { return "native" }

// Convert extracts plain text page by page and formats it.
func (NativeConverter) Convert(ctx context.Context, data []byte) (md string, err error) {
	pages, err := nativePages(ctx, data)
	if err != nil {
		return "", err
	}
	md = FormatMarkdown(pages)
	if !hasBody(md) {
		return "", errors.New("pdf has no extractable text layer")
	}
	return md, nil
}

func nativePages(ctx context.Context, data []byte) (pages []string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
