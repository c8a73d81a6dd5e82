// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns a paper's PDF into raw Markdown text. OCR through
// a vision model is the primary path; the embedded text layer is the
// fallback whenever OCR is unavailable or fails on any page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

// Downloader fetches document bytes.
type Downloader interface {
	Download(ctx context.Context, src acquire.Source) ([]byte, error)
}

// OCRBackend transcribes page images.
type OCRBackend interface {
	Probe(ctx context.Context, timeout time.Duration) bool
	OCRPage(ctx context.Context, image []byte) (string, error)
	Name() string
}

// Rasterizer renders a PDF to one image per page.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([][]byte, error)
}

// TextLayer reads the embedded text of a PDF as Markdown.
type TextLayer interface {
	Convert(ctx context.Context, pdf []byte) (string, error)
	Name() string
}

// Result is the extracted text and how it was produced.
type Result struct {
	Text   string
	Method types.Provenance
	// Detail names the OCR model or text-layer backend.
	Detail string
	// Pages is the number of OCR'd pages; zero for the text layer.
	Pages int
}

// Extractor runs the two-path extraction. OCR and Rasterizer may be nil,
// which disables the OCR path.
type Extractor struct {
	Downloader Downloader
	OCR        OCRBackend
	Rasterizer Rasterizer
	TextLayer  TextLayer

	ProbeTimeout    time.Duration
	PageTimeout     time.Duration
	DownloadTimeout time.Duration

	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// Extract downloads src and returns its text. A download failure is
// returned as is. When both paths fail the error wraps
// types.ErrParseFailure and both causes.
func (e *Extractor) Extract(ctx context.Context, src acquire.Source) (Result, error) {
	log := e.logger().With(zap.String("paper_id", src.PaperID.String()))

	pdf, err := e.download(ctx, src)
	if err != nil {
		return Result{}, err
	}

	ocrErr := errBackendSkipped
	if e.ocrAvailable(ctx) {
		res, err := e.runOCR(ctx, pdf)
		if err == nil {
			e.Metrics.IncExtraction(string(types.ProvenanceOCR))
			log.Info("extracted with OCR", zap.Int("pages", res.Pages))
			return res, nil
		}
		ocrErr = err
		log.Warn("OCR failed, falling back to text layer", zap.Error(err))
	}

	text, tlErr := e.TextLayer.Convert(ctx, pdf)
	if tlErr == nil && strings.TrimSpace(text) == "" {
		tlErr = errors.New("empty text")
	}
	if tlErr != nil {
		e.Metrics.IncExtraction("failed")
		return Result{}, fmt.Errorf("%w: %w", types.ErrParseFailure,
			errors.Join(fmt.Errorf("ocr: %w", ocrErr), fmt.Errorf("text layer: %w", tlErr)))
	}

	e.Metrics.IncExtraction(string(types.ProvenanceTextLayer))
	log.Info("extracted from text layer", zap.String("backend", e.TextLayer.Name()))
	return Result{Text: text, Method: types.ProvenanceTextLayer, Detail: e.TextLayer.Name()}, nil
}

var errBackendSkipped = fmt.Errorf("%w: not attempted", types.ErrBackendUnavailable)

func (e *Extractor) download(ctx context.Context, src acquire.Source) ([]byte, error) {
	if e.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.DownloadTimeout)
		defer cancel()
	}
	return e.Downloader.Download(ctx, src)
}

// ocrAvailable is the probe gate. Nothing else in the OCR path runs when
// it reports false.
func (e *Extractor) ocrAvailable(ctx context.Context) bool {
	if e.OCR == nil || e.Rasterizer == nil {
		return false
	}
	timeout := e.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ok := e.OCR.Probe(ctx, timeout)
	e.Metrics.IncOCRProbe(ok)
	return ok
}

// runOCR transcribes every page in order. The first failing page abandons
// the whole attempt; no partial text is kept.
func (e *Extractor) runOCR(ctx context.Context, pdf []byte) (Result, error) {
	images, err := e.Rasterizer.Rasterize(ctx, pdf)
	if err != nil {
		return Result{}, err
	}

	pages := make([]string, 0, len(images))
	for i, img := range images {
		text, err := e.ocrPage(ctx, img)
		if err != nil {
			return Result{}, fmt.Errorf("page %d of %d: %w", i+1, len(images), err)
		}
		pages = append(pages, text)
	}

	return Result{
		Text:   strings.Join(pages, "\n\n"),
		Method: types.ProvenanceOCR,
		Detail: e.OCR.Name(),
		Pages:  len(pages),
	}, nil
}

func (e *Extractor) ocrPage(ctx context.Context, img []byte) (string, error) {
	if e.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.PageTimeout)
		defer cancel()
	}
	text, err := e.OCR.OCRPage(ctx, img)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty page text")
	}
	return text, err
}

func (e *Extractor) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
