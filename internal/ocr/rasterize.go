// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const binPdftoppm = "pdftoppm"

// runner abstracts command execution for testing.
type runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type osRunner struct{}

func (osRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Rasterizer renders PDF pages to JPEG images with poppler's pdftoppm.
type Rasterizer struct {
	DPI int

	fs  afero.Fs
	run runner
}

// NewRasterizer returns a Rasterizer at dpi (180 when zero).
func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = 180
	}
	return &Rasterizer{DPI: dpi, fs: afero.NewOsFs(), run: osRunner{}}
}

// Rasterize returns one JPEG per page, in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	dir, err := afero.TempDir(r.fs, "", "paperlens-raster-")
	if err != nil {
		return nil, fmt.Errorf("creating raster dir: %w", err)
	}
	defer r.fs.RemoveAll(dir)

	in := filepath.Join(dir, "doc.pdf")
	if err := afero.WriteFile(r.fs, in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	if err := r.run.Run(ctx, binPdftoppm, "-jpeg", "-r", strconv.Itoa(r.DPI), in, prefix); err != nil {
		return nil, fmt.Errorf("rasterizing pdf: %w", err)
	}

	pages, err := r.collect(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("rasterizing pdf: no pages produced")
	}
	return pages, nil
}

// collect reads page-N.jpg files. pdftoppm zero-pads N to the width of the
// page count, so order by the parsed number rather than the name.
func (r *Rasterizer) collect(dir string) ([][]byte, error) {
	infos, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing raster dir: %w", err)
	}

	type page struct {
		n    int
		name string
	}
	var found []page
	for _, fi := range infos {
		name := fi.Name()
		if !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".jpg") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".jpg"))
		if err != nil {
			continue
		}
		found = append(found, page{n, name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	images := make([][]byte, 0, len(found))
	for _, p := range found {
		data, err := afero.ReadFile(r.fs, filepath.Join(dir, p.name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.name, err)
		}
		images = append(images, data)
	}
	return images, nil
}
