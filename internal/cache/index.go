// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/paperlens/pkg/types"
)

// index is the on-disk shape of index.json.
type index struct {
	Papers map[types.PaperID]map[types.ArtifactKind]indexEntry `json:"papers"`
}

type indexEntry struct {
	File       string           `json:"file"`
	Provenance types.Provenance `json:"provenance"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (idx *index) set(id types.PaperID, kind types.ArtifactKind, e indexEntry) {
	if idx.Papers == nil {
		idx.Papers = make(map[types.PaperID]map[types.ArtifactKind]indexEntry)
	}
	if idx.Papers[id] == nil {
		idx.Papers[id] = make(map[types.ArtifactKind]indexEntry)
	}
	idx.Papers[id][kind] = e
}

func (idx *index) unset(id types.PaperID, kind types.ArtifactKind) {
	entries, ok := idx.Papers[id]
	if !ok {
		return
	}
	delete(entries, kind)
	if len(entries) == 0 {
		delete(idx.Papers, id)
	}
}

func (s *Store) readIndex() (index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadIndexLocked()
}

func (s *Store) loadIndexLocked() (index, error) {
	idx := index{Papers: make(map[types.PaperID]map[types.ArtifactKind]indexEntry)}
	data, err := afero.ReadFile(s.fs, path.Join(s.root, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("reading cache index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("decoding cache index: %w", err)
	}
	if idx.Papers == nil {
		idx.Papers = make(map[types.PaperID]map[types.ArtifactKind]indexEntry)
	}
	return idx, nil
}

// updateIndex applies fn to the index under the store mutex and writes the
// result back atomically.
func (s *Store) updateIndex(fn func(*index)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndexLocked()
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheWrite, err)
	}
	fn(&idx)

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", types.ErrCacheWrite, s.root, err)
	}
	return s.writeAtomic(path.Join(s.root, indexFile), data)
}
