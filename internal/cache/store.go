// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists derived artifacts per paper: raw text, sections,
// metadata and analysis. Each artifact lives in its own file under
// <root>/<paper>/ and is replaced atomically; a top-level index.json records
// which kinds exist for each paper and when each was last written.
//
// Concurrent writes to the same (paper, kind) are last-writer-wins. Writes
// to different papers never interfere.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/metrics"
	"github.com/pdiddy/paperlens/pkg/types"
)

const (
	indexFile    = "index.json"
	rawTextFile  = "markdown.md"
	rawTextMeta  = "markdown.json"
	sectionsFile = "sections.json"
	metadataFile = "metadata.json"
	analysisFile = "analysis.json"
)

// fileFor maps a kind to the file that holds its envelope.
var fileFor = map[types.ArtifactKind]string{
	types.KindRawText:  rawTextMeta,
	types.KindSections: sectionsFile,
	types.KindMetadata: metadataFile,
	types.KindAnalysis: analysisFile,
}

// Store is the artifact store. The zero value is not usable; call New.
type Store struct {
	fs   afero.Fs
	root string

	// mu serializes read-modify-write cycles on index.json.
	mu sync.Mutex

	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithMetrics sets the metrics handle.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a store rooted at root on fsys.
func New(fsys afero.Fs, root string, opts ...Option) *Store {
	s := &Store{
		fs:   fsys,
		root: root,
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewOS creates a store on the real filesystem.
func NewOS(root string, opts ...Option) *Store {
	return New(afero.NewOsFs(), root, opts...)
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Fs returns the filesystem the store writes to. The ledger shares it.
func (s *Store) Fs() afero.Fs { return s.fs }

// Get returns the artifact for (id, kind). found is false when nothing is
// cached; a cached file that cannot be read or decoded is an error, never a
// miss.
func (s *Store) Get(id types.PaperID, kind types.ArtifactKind) (types.Artifact, bool, error) {
	if !kind.Valid() {
		return types.Artifact{}, false, fmt.Errorf("unknown artifact kind %q", kind)
	}
	if id.IsZero() {
		return types.Artifact{}, false, fmt.Errorf("empty paper id: %w", types.ErrInvalidIdentifier)
	}

	var (
		art   types.Artifact
		found bool
		err   error
	)
	if kind == types.KindRawText {
		art, found, err = s.getRawText(id)
	} else {
		art, found, err = s.readEnvelope(id, kind)
	}

	switch {
	case err != nil:
		s.metrics.IncCacheLookup(string(kind), "error")
	case found:
		s.metrics.IncCacheLookup(string(kind), "hit")
	default:
		s.metrics.IncCacheLookup(string(kind), "miss")
	}
	return art, found, err
}

// Put stores payload as the (id, kind) artifact, replacing any previous
// value. For KindRawText payload must be a string; other kinds are encoded
// as JSON. Persistence failures are returned wrapped in types.ErrCacheWrite.
func (s *Store) Put(id types.PaperID, kind types.ArtifactKind, prov types.Provenance, detail string, payload any) error {
	err := s.put(id, kind, prov, detail, payload)
	if err != nil {
		s.metrics.IncCacheWrite(string(kind), "error")
		s.log.Error("cache write failed",
			zap.String("paper_id", id.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return err
	}
	s.metrics.IncCacheWrite(string(kind), "ok")
	s.log.Debug("cache write",
		zap.String("paper_id", id.String()),
		zap.String("kind", string(kind)),
		zap.String("provenance", string(prov)))
	return nil
}

func (s *Store) put(id types.PaperID, kind types.ArtifactKind, prov types.Provenance, detail string, payload any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}
	if id.IsZero() {
		return fmt.Errorf("empty paper id: %w", types.ErrInvalidIdentifier)
	}

	dir := s.paperDir(id)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", types.ErrCacheWrite, dir, err)
	}

	art := types.Artifact{
		PaperID:    id,
		Kind:       kind,
		Provenance: prov,
		Detail:     detail,
		CreatedAt:  s.now().UTC(),
	}

	// Files written by this call are removed again if a later step fails,
	// so a failed Put never leaves a readable artifact behind.
	var written []string
	rollback := func(err error) error {
		for _, p := range written {
			if rmErr := s.fs.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.log.Warn("removing partial artifact", zap.String("path", p), zap.Error(rmErr))
			}
		}
		return err
	}

	if kind == types.KindRawText {
		text, ok := payload.(string)
		if !ok {
			return fmt.Errorf("raw text payload must be a string, got %T", payload)
		}
		textPath := path.Join(dir, rawTextFile)
		if err := s.writeAtomic(textPath, []byte(text)); err != nil {
			return err
		}
		written = append(written, textPath)
	} else {
		body, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", kind, err)
		}
		art.Payload = body
	}

	env, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return rollback(fmt.Errorf("encoding %s envelope: %w", kind, err))
	}
	envPath := path.Join(dir, fileFor[kind])
	if err := s.writeAtomic(envPath, env); err != nil {
		return rollback(err)
	}
	written = append(written, envPath)

	err = s.updateIndex(func(idx *index) {
		idx.set(id, kind, indexEntry{
			File:       fileFor[kind],
			Provenance: prov,
			UpdatedAt:  art.CreatedAt,
		})
	})
	if err != nil {
		return rollback(err)
	}
	return nil
}

// Status reports which kinds are cached for id. Presence is taken from the
// files themselves; timestamps come from the index.
func (s *Store) Status(id types.PaperID) (types.ArtifactStatus, error) {
	st := types.ArtifactStatus{
		PaperID: id,
		Present: make(map[types.ArtifactKind]bool, len(types.AllKinds)),
		Updated: make(map[types.ArtifactKind]time.Time),
	}

	idx, err := s.readIndex()
	if err != nil {
		return st, err
	}
	entries := idx.Papers[id]

	dir := s.paperDir(id)
	for _, kind := range types.AllKinds {
		names := []string{fileFor[kind]}
		if kind == types.KindRawText {
			names = append(names, rawTextFile)
		}
		ok := true
		for _, name := range names {
			exists, err := afero.Exists(s.fs, path.Join(dir, name))
			if err != nil {
				return st, fmt.Errorf("checking %s for %s: %w", kind, id, err)
			}
			ok = ok && exists
		}
		st.Present[kind] = ok
		if e, has := entries[kind]; ok && has {
			st.Updated[kind] = e.UpdatedAt
		}
	}
	return st, nil
}

// Clear removes the given kinds for id. With no kinds it removes every
// artifact, the paper's directory and its index record.
func (s *Store) Clear(id types.PaperID, kinds ...types.ArtifactKind) error {
	if id.IsZero() {
		return fmt.Errorf("empty paper id: %w", types.ErrInvalidIdentifier)
	}
	dir := s.paperDir(id)

	if len(kinds) == 0 {
		if err := s.fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("%w: removing %s: %v", types.ErrCacheWrite, dir, err)
		}
		return s.updateIndex(func(idx *index) { delete(idx.Papers, id) })
	}

	for _, kind := range kinds {
		if !kind.Valid() {
			return fmt.Errorf("unknown artifact kind %q", kind)
		}
		names := []string{fileFor[kind]}
		if kind == types.KindRawText {
			names = append(names, rawTextFile)
		}
		for _, name := range names {
			if err := s.fs.Remove(path.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: removing %s: %v", types.ErrCacheWrite, name, err)
			}
		}
	}
	return s.updateIndex(func(idx *index) {
		for _, kind := range kinds {
			idx.unset(id, kind)
		}
	})
}

// List returns every paper that has an index record.
func (s *Store) List() ([]types.PaperID, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	ids := make([]types.PaperID, 0, len(idx.Papers))
	for id := range idx.Papers {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) getRawText(id types.PaperID) (types.Artifact, bool, error) {
	dir := s.paperDir(id)
	data, err := afero.ReadFile(s.fs, path.Join(dir, rawTextFile))
	if errors.Is(err, fs.ErrNotExist) {
		return types.Artifact{}, false, nil
	}
	if err != nil {
		return types.Artifact{}, false, fmt.Errorf("reading raw text for %s: %w", id, err)
	}

	// The envelope is written after the text; text without one is an
	// unfinished write and reads as a miss.
	art, found, err := s.readEnvelope(id, types.KindRawText)
	if err != nil || !found {
		return types.Artifact{}, false, err
	}
	payload, err := json.Marshal(string(data))
	if err != nil {
		return types.Artifact{}, false, fmt.Errorf("encoding raw text for %s: %w", id, err)
	}
	art.Payload = payload
	return art, true, nil
}

func (s *Store) readEnvelope(id types.PaperID, kind types.ArtifactKind) (types.Artifact, bool, error) {
	p := path.Join(s.paperDir(id), fileFor[kind])
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Artifact{}, false, nil
	}
	if err != nil {
		return types.Artifact{}, false, fmt.Errorf("reading %s for %s: %w", kind, id, err)
	}
	var art types.Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return types.Artifact{}, false, fmt.Errorf("decoding %s for %s: %w", kind, id, err)
	}
	return art, true, nil
}

func (s *Store) writeAtomic(dest string, data []byte) error {
	return WriteAtomic(s.fs, dest, data)
}

// WriteAtomic writes data to a temp file in the destination directory and
// renames it into place, so readers see either the old or the new file.
// Failures wrap types.ErrCacheWrite.
func WriteAtomic(fsys afero.Fs, dest string, data []byte) error {
	dir := path.Dir(dest)
	tmp, err := afero.TempFile(fsys, dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", types.ErrCacheWrite, dir, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		fsys.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", types.ErrCacheWrite, dest, writeErr)
	}
	if closeErr != nil {
		fsys.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %v", types.ErrCacheWrite, dest, closeErr)
	}
	if err := fsys.Rename(tmpPath, dest); err != nil {
		fsys.Remove(tmpPath)
		return fmt.Errorf("%w: renaming into %s: %v", types.ErrCacheWrite, dest, err)
	}
	return nil
}

func (s *Store) paperDir(id types.PaperID) string {
	return path.Join(s.root, DirName(id))
}

// dirEscaper percent-encodes the characters that cannot appear in a
// directory name, and the escape character itself, so distinct ids never
// share a directory.
var dirEscaper = strings.NewReplacer("%", "%25", "/", "%2F", ":", "%3A", "\\", "%5C")

// DirName returns the filesystem-safe directory name for id.
func DirName(id types.PaperID) string {
	return dirEscaper.Replace(strings.TrimSpace(string(id)))
}
