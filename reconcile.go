package patchsync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// confirmThreshold is the number of deletion candidates above which
// the operator must approve the batch.
const confirmThreshold = 10

// removeRedundant deletes local files that are tracked in the cache
// but no longer referenced by the manifest. Deletion is best-effort: a
// path already gone from disk is logged and skipped. Returns every
// path targeted for deletion so the caller can reconcile its cache, or
// nil when there is nothing to do or the operator declined.
func (s *Syncer) removeRedundant(cache map[string]string, entries []Entry) []string {
	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keep[e.LocalPath] = struct{}{}
	}

	var doomed []string
	for path := range cache {
		if _, ok := keep[path]; !ok {
			doomed = append(doomed, path)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	sort.Strings(doomed)

	if len(doomed) > confirmThreshold {
		question := fmt.Sprintf("Found %d files to delete when updating, are you sure this is correct?", len(doomed))
		if !s.confirm.Confirm(question, false) {
			s.logger.Info("deletion declined by operator", "candidates", len(doomed))
			return nil
		}
	}

	removed := 0
	for _, path := range doomed {
		err := os.Remove(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Warn("asked to delete a file that does not exist, continuing", "path", path)
		case err != nil:
			s.logger.Warn("delete failed, continuing", "path", path, "error", err)
		default:
			removed++
		}
	}

	s.logger.Info("removed files no longer on the patch list", "deleted", removed, "tracked", len(doomed))
	return doomed
}
