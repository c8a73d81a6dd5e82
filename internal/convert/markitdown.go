// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/paperlens/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownConverter pipes PDFs through the markitdown container image.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter verifies that the markitdown image exists in rt.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

func (m *MarkitdownConverter) Name() string { return "markitdown" }

// Convert runs the container and formats its output. markitdown separates
// pages with form feeds; each one becomes a page section.
func (m *MarkitdownConverter) Convert(ctx context.Context, pdf []byte) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Run(ctx, imageMarkitdown, bytes.NewReader(pdf), &out); err != nil {
		return "", fmt.Errorf("converting with markitdown: %w", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("markitdown produced empty output")
	}

	md := FormatMarkdown(strings.Split(out.String(), "\f"))
	if !hasBody(md) {
		return "", fmt.Errorf("markitdown produced no page text")
	}
	return md, nil
}
