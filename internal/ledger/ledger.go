// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the append-only list of saved application ideas and
// the papers found relevant to each, as a JSON array in applications.json
// next to the artifact cache.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/cache"
	"github.com/pdiddy/paperlens/pkg/types"
)

// FileName is the ledger file under the cache root.
const FileName = "applications.json"

// Ledger is the application ledger. Safe for concurrent use within one
// process.
type Ledger struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	lastID time.Time

	now func() time.Time
	log *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }

// New returns the ledger stored at <dir>/applications.json on fsys.
func New(fsys afero.Fs, dir string, opts ...Option) *Ledger {
	l := &Ledger{
		fs:   fsys,
		path: path.Join(dir, FileName),
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Path returns the ledger file location.
func (l *Ledger) Path() string { return l.path }

// Append adds entry to the end of the ledger and returns it as stored. An
// empty ID or CreatedAt is filled in; generated IDs are unique and
// increasing within the process. Nil lists are stored as empty arrays.
func (l *Ledger) Append(entry types.ApplicationLedgerEntry) (types.ApplicationLedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return types.ApplicationLedgerEntry{}, err
	}

	now := l.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ID == "" {
		entry.ID = l.nextID(now, entries)
	}
	if entry.RelatedPapers == nil {
		entry.RelatedPapers = []types.CandidatePaper{}
	}
	if entry.SourcePaper.Authors == nil {
		entry.SourcePaper.Authors = []string{}
	}

	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return types.ApplicationLedgerEntry{}, fmt.Errorf("encoding ledger: %w", err)
	}
	if err := l.fs.MkdirAll(path.Dir(l.path), 0o755); err != nil {
		return types.ApplicationLedgerEntry{}, fmt.Errorf("%w: creating %s: %v", types.ErrCacheWrite, path.Dir(l.path), err)
	}
	if err := cache.WriteAtomic(l.fs, l.path, data); err != nil {
		return types.ApplicationLedgerEntry{}, err
	}

	l.log.Info("application saved",
		zap.String("id", entry.ID),
		zap.String("domain", entry.Application.Domain),
		zap.Int("related_papers", len(entry.RelatedPapers)))
	return entry, nil
}

// List returns every entry in append order. A missing file is an empty
// ledger.
func (l *Ledger) List() ([]types.ApplicationLedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Get returns the entry with the given ID.
func (l *Ledger) Get(id string) (types.ApplicationLedgerEntry, error) {
	entries, err := l.List()
	if err != nil {
		return types.ApplicationLedgerEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return types.ApplicationLedgerEntry{}, fmt.Errorf("%w: no application %q", types.ErrNotFound, id)
}

func (l *Ledger) load() ([]types.ApplicationLedgerEntry, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.ApplicationLedgerEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	if len(data) == 0 {
		return []types.ApplicationLedgerEntry{}, nil
	}

	var entries []types.ApplicationLedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.path, err)
	}
	if entries == nil {
		entries = []types.ApplicationLedgerEntry{}
	}
	return entries, nil
}

// nextID derives an ID from now, nudged forward so it never repeats or
// goes backwards relative to the last one issued or stored.
func (l *Ledger) nextID(now time.Time, existing []types.ApplicationLedgerEntry) string {
	last := l.lastID
	if n := len(existing); n > 0 {
		if t, err := time.Parse(time.RFC3339Nano, existing[n-1].ID); err == nil && t.After(last) {
			last = t
		}
	}
	if !now.After(last) {
		now = last.Add(time.Nanosecond)
	}
	l.lastID = now
	return now.Format(time.RFC3339Nano)
}
