// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/internal/analyze"
	"github.com/pdiddy/paperlens/internal/cache"
	"github.com/pdiddy/paperlens/internal/classify"
	"github.com/pdiddy/paperlens/internal/convert"
	"github.com/pdiddy/paperlens/internal/extract"
	"github.com/pdiddy/paperlens/internal/ledger"
	"github.com/pdiddy/paperlens/internal/library"
	"github.com/pdiddy/paperlens/internal/logging"
	"github.com/pdiddy/paperlens/internal/metadata"
	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/internal/ocr"
	"github.com/pdiddy/paperlens/internal/pipeline"
	"github.com/pdiddy/paperlens/internal/relevance"
	"github.com/pdiddy/paperlens/internal/search"
	"github.com/pdiddy/paperlens/internal/segment"
	"github.com/pdiddy/paperlens/pkg/types"
)

// app holds everything a command needs, built from the loaded config.
type app struct {
	cfg      types.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	http     *http.Client
	store    *cache.Store
	ledger   *ledger.Ledger
	library  *library.Library
	backends []search.Backend
	pipe     *pipeline.Pipeline

	server *http.Server
}

// newApp loads the configuration and wires the pipeline. A classifier
// that cannot be built (usually a missing API key) is logged and leaves
// the stages that need it unconfigured; cache-only commands still work.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		http:    &http.Client{Timeout: cfg.HTTP.Timeout},
	}
	a.store = cache.NewOS(cfg.Cache.Dir, cache.WithLogger(log), cache.WithMetrics(a.metrics))
	a.ledger = ledger.New(a.store.Fs(), cfg.Cache.Dir, ledger.WithLogger(log))

	lib, err := library.Open(cfg.Library.DBPath, library.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a.library = lib
	if cfg.Library.SeedDefaults {
		if n, err := lib.SeedDefaults(ctx); err != nil {
			log.Warn("seeding library failed", zap.Error(err))
		} else if n > 0 {
			log.Info("seeded library", zap.Int("papers", n))
		}
	}

	a.backends = search.Backends(cfg.Search, a.http)

	extractor, err := a.extractor(ctx)
	if err != nil {
		lib.Close()
		return nil, err
	}
	provider := metadata.New(cfg.Metadata, cfg.HTTP, a.http, log)

	a.pipe = &pipeline.Pipeline{
		Store:     a.store,
		Extractor: extractor,
		Provider:  provider,
		Ledger:    a.ledger,
		Resolver: &acquire.Resolver{
			Client:     a.http,
			UserAgent:  cfg.HTTP.UserAgent,
			MaxRetries: cfg.HTTP.MaxRetries,
		},
		Library: lib,
		Log:     log,
		Metrics: a.metrics,
	}

	cls, err := classify.New(ctx, cfg.Classifier, a.http, log, a.metrics)
	if err != nil {
		log.Warn("classifier unavailable; sections, analyze and discover are disabled", zap.Error(err))
	} else {
		a.pipe.Segmenter = &segment.Segmenter{Classifier: cls, Log: log}
		a.pipe.Analyzer = &analyze.Analyzer{Classifier: cls, Log: log}
		a.pipe.Filter = &relevance.Filter{
			Discover: func(ctx context.Context, text string, limit int) []string {
				return search.Discover(ctx, a.backends, text, limit, log)
			},
			Store:          a.store,
			Provider:       provider,
			Classifier:     cls,
			Workers:        cfg.Relevance.Workers,
			TaskTimeout:    cfg.Relevance.TaskTimeout,
			DiscoveryLimit: cfg.Relevance.DiscoveryLimit,
			Log:            log,
			Metrics:        a.metrics,
		}
	}

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	return a, nil
}

func (a *app) extractor(ctx context.Context) (*extract.Extractor, error) {
	cfg := a.cfg
	textLayer, err := convert.New(ctx, cfg.TextLayer)
	if err != nil {
		return nil, fmt.Errorf("text layer backend %s: %w", cfg.TextLayer.Backend, err)
	}
	e := &extract.Extractor{
		Downloader: &acquire.Downloader{
			Client:     a.http,
			UserAgent:  cfg.HTTP.UserAgent,
			MaxRetries: cfg.HTTP.MaxRetries,
			Email:      cfg.HTTP.Email,
			Log:        a.log,
		},
		TextLayer:       textLayer,
		ProbeTimeout:    cfg.OCR.ProbeTimeout,
		PageTimeout:     cfg.OCR.PageTimeout,
		DownloadTimeout: cfg.HTTP.Timeout,
		Log:             a.log,
		Metrics:         a.metrics,
	}
	if cfg.OCR.Enabled {
		// OCR calls are bounded per page by PageTimeout, not by the shared client.
		e.OCR = ocr.NewClient(cfg.OCR, nil, a.log)
		e.Rasterizer = ocr.NewRasterizer(cfg.OCR.DPI)
	}
	return e, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", addr))
}

// Close releases the library database and stops the metrics server.
func (a *app) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.server.Shutdown(ctx)
		cancel()
	}
	if a.library != nil {
		if err := a.library.Close(); err != nil {
			a.log.Warn("closing library", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stageError turns a failed stage result into a command error.
func stageError(stage string, r pipeline.Result) error {
	if r.Success {
		return nil
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s %s: %w", stage, r.PaperID, err)
	}
	return fmt.Errorf("%s %s: %s", stage, r.PaperID, r.Error)
}
