package patchsync

import (
	"context"
	"fmt"
	"os"
)

// detectStale compares manifest entries against the local tree and the
// cached hashes from previous runs.
//
// A missing or wrong-sized file is stale unconditionally and is never
// hashed. With validate set, the incoming cache is ignored and every
// surviving file is re-hashed from disk; otherwise files the cache has
// never seen are trusted on first sight and seeded with the manifest's
// expected hash. The remaining entries are stale when their cached
// hash differs from the manifest.
//
// The input cache is never mutated; the returned map is the updated
// cache for this run.
func (s *Syncer) detectStale(ctx context.Context, entries []Entry, cached map[string]string, validate bool) ([]Entry, map[string]string, error) {
	hashes := make(map[string]string, len(cached))
	for path, sum := range cached {
		hashes[path] = sum
	}

	stale := make(map[string]bool, len(entries))
	var intact []string
	for _, e := range entries {
		info, err := os.Stat(e.LocalPath)
		switch {
		case err != nil:
			s.logger.Debug("file not found on disk", "path", e.LocalPath)
			stale[e.LocalPath] = true
		case info.Size() != e.Size:
			s.logger.Debug("file has incorrect size", "path", e.LocalPath, "want", e.Size, "got", info.Size())
			stale[e.LocalPath] = true
		default:
			intact = append(intact, e.LocalPath)
		}
	}

	if validate {
		s.logger.Info("recalculating all local hashes", "files", len(intact))
		fresh, err := s.hasher.Sum(ctx, intact)
		if err != nil {
			return nil, nil, fmt.Errorf("hash local files: %w", err)
		}
		hashes = fresh
	} else {
		for _, e := range entries {
			if stale[e.LocalPath] {
				continue
			}
			if _, ok := hashes[e.LocalPath]; !ok {
				hashes[e.LocalPath] = e.Hash
			}
		}
	}

	for _, e := range entries {
		if stale[e.LocalPath] {
			continue
		}
		if hashes[e.LocalPath] != e.Hash {
			s.logger.Debug("cached hash differs from manifest", "path", e.LocalPath)
			stale[e.LocalPath] = true
		}
	}

	var out []Entry
	for _, e := range entries {
		if stale[e.LocalPath] {
			out = append(out, e)
		}
	}
	return out, hashes, nil
}
