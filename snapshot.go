package onetwo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/skaiphd/onetwo/internal/wire"
)

const snapshotExt = ".snap"

// SnapshotPath returns the file a store with the given name persists to
// under dir.
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, name+snapshotExt)
}

// WriteToDirectory persists every value pool, including sampling-identity
// assignments, to dir under a filename derived from the store's name. It
// fails with ErrSnapshotExists if the file is already present - snapshots
// never silently overwrite - and writes atomically, so a failed save leaves
// no partial file behind.
func (s *Store[V]) WriteToDirectory(dir string) error {
	path := SnapshotPath(dir, s.name)
	if _, err := os.Stat(path); err == nil {
		return &SnapshotError{Path: path, Err: ErrSnapshotExists}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &SnapshotError{Path: path, Err: err}
	}

	pools, err := s.exportPools()
	if err != nil {
		return &SnapshotError{Path: path, Err: err}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(wire.EncodeSnapshot(pools))); err != nil {
		return &SnapshotError{Path: path, Err: err}
	}

	s.hooks.SnapshotWritten(path, len(pools))
	s.log.Info("snapshot written", Fields{"cache": s.name, "path": path, "keys": len(pools)})
	return nil
}

// exportPools encodes the store's state in deterministic order: pools sorted
// by key, assignments sorted by identity.
func (s *Store[V]) exportPools() ([]wire.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.pools))
	for k := range s.pools {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]wire.Pool, 0, len(keys))
	for _, k := range keys {
		p := s.pools[k]
		wp := wire.Pool{Key: k, Used: uint32(p.used)}

		wp.Values = make([][]byte, 0, len(p.values))
		for i, v := range p.values {
			b, err := s.codec.Encode(v)
			if err != nil {
				return nil, fmt.Errorf("encode value %d of key %q: %w", i, k, err)
			}
			wp.Values = append(wp.Values, b)
		}

		wp.Samples = make([]wire.SampleRef, 0, len(p.samples))
		for id, idx := range p.samples {
			wp.Samples = append(wp.Samples, wire.SampleRef{ID: id, Index: uint32(idx)})
		}
		sort.Slice(wp.Samples, func(i, j int) bool { return wp.Samples[i].ID < wp.Samples[j].ID })

		out = append(out, wp)
	}
	return out, nil
}

// Load reconstructs a Store from a snapshot file.
//
// With restoreMapping, the sampling-identity assignments and per-key assigned
// counts are restored verbatim: reads after reload return identical values
// for identical identities as before the save. Without it, value sequences
// are restored but assignment state starts empty, so round-robin assignment
// restarts from index 0 - a deliberate mode for replaying the same pool with
// fresh sample assignments.
//
// If opts.Name is empty it is derived from the snapshot filename.
func Load[V any](path string, restoreMapping bool, opts Options[V]) (*Store[V], error) {
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), snapshotExt)
	}
	s, err := New[V](opts)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &SnapshotError{Path: path, Err: err}
	}
	pools, err := wire.DecodeSnapshot(b)
	if err != nil {
		return nil, &SnapshotError{Path: path, Err: fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)}
	}

	for _, wp := range pools {
		p := &pool[V]{
			values:  make([]V, 0, len(wp.Values)),
			samples: make(map[string]int, len(wp.Samples)),
		}
		for i, raw := range wp.Values {
			v, err := s.codec.Decode(raw)
			if err != nil {
				return nil, &SnapshotError{
					Path: path,
					Err:  fmt.Errorf("%w: value %d of key %q: %v", ErrCorruptSnapshot, i, wp.Key, err),
				}
			}
			p.values = append(p.values, v)
		}
		if restoreMapping {
			for _, sr := range wp.Samples {
				p.samples[sr.ID] = int(sr.Index)
			}
			p.used = int(wp.Used)
		}
		s.pools[wp.Key] = p
	}

	s.log.Debug("snapshot loaded", Fields{
		"cache": s.name, "path": path, "keys": len(pools), "restore_mapping": restoreMapping,
	})
	return s, nil
}
