// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inbox watches a directory for PDFs dropped into it. Bursts of
// write events on one file are collapsed into a single Event once the
// file has been quiet for the debounce window.
package inbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultDebounce is used when New is given a non-positive window.
const DefaultDebounce = 2 * time.Second

// Op says how a file arrived.
type Op int

const (
	Created Op = iota + 1
	Modified
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Event reports a settled PDF in the inbox.
type Event struct {
	Path string
	Op   Op
}

// Watcher emits Events for .pdf files in one directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// New creates a watcher over dir. The directory must exist.
func New(dir string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &Watcher{watcher: fw, dir: dir, debounce: debounce, log: log, now: time.Now}, nil
}

// Watch starts monitoring. The returned channel is closed when ctx is done
// or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	if err := w.watcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.log.Info("watching inbox", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	out := make(chan Event, 16)
	go w.loop(ctx, w.watcher.Events, w.watcher.Errors, out)
	return out, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

type pending struct {
	op   Op
	last time.Time
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, out chan<- Event) {
	defer close(out)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	waiting := make(map[string]*pending)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if !IsPDF(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				waiting[ev.Name] = &pending{op: Created, last: w.now()}
			case ev.Has(fsnotify.Write):
				if p, ok := waiting[ev.Name]; ok {
					p.last = w.now()
				} else {
					waiting[ev.Name] = &pending{op: Modified, last: w.now()}
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(waiting, ev.Name)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.log.Warn("inbox watcher error", zap.Error(err))

		case <-ticker.C:
			now := w.now()
			var ready []string
			for path, p := range waiting {
				if now.Sub(p.last) >= w.debounce {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				ev := Event{Path: path, Op: waiting[path].op}
				delete(waiting, path)
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// IsPDF reports whether path has a .pdf extension, in any case.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Scan lists the PDFs already in dir, sorted by name, so a watch can start
// with a backlog.
func Scan(fsys afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
