// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts the embedded text layer of a PDF and shapes it
// into Markdown. It is the fallback path when OCR is unavailable or fails.
package convert

import (
	"context"
	"fmt"

	"github.com/pdiddy/paperlens/internal/container"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Converter turns PDF bytes into Markdown. Backends differ in how they read
// the text layer; all of them return FormatMarkdown output.
type Converter interface {
	// Convert returns the Markdown for pdf. Empty output is an error.
	Convert(ctx context.Context, pdf []byte) (string, error)

	// Name identifies the backend in artifact provenance details.
	Name() string
}

// New returns the backend selected by cfg. The markitdown backend needs a
// container runtime and the image present locally.
func New(ctx context.Context, cfg types.TextLayerConfig) (Converter, error) {
	switch cfg.Backend {
	case "", types.TextLayerNative:
		return NativeConverter{}, nil
	case types.TextLayerMarkitdown:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewMarkitdownConverter(ctx, rt)
	default:
		return nil, fmt.Errorf("unknown text layer backend %q", cfg.Backend)
	}
}
