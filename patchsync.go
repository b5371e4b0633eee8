package patchsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aweris/patchsync/internal/fetch"
	"github.com/aweris/patchsync/internal/hashing"
)

const maintenancePath = "/MaintenanceLock.lck"

// Outcome reports what one run changed. Updated maps every file
// written this run to its verified hash; Deleted maps every removed
// file to the hash it had in the cache. A nil map means the run made
// no change in that category and the persisted cache must be left
// untouched for it. Deferred is set when the run stopped early because
// the servers are under maintenance.
type Outcome struct {
	Updated  map[string]string
	Deleted  map[string]string
	Deferred bool
}

// Syncer drives synchronization runs against one patch host. A Syncer
// owns the hash cache only for the duration of a run; concurrent runs
// against the same output directory are not supported.
type Syncer struct {
	rootDomain string
	outputDir  string

	client      *http.Client
	hasher      *hashing.Hasher
	downloader  *fetch.Downloader
	confirm     Confirmer
	newProgress func(totalBytes int64) Progress
	logger      *slog.Logger
}

// New creates a Syncer for the given patch host and output directory.
func New(rootDomain, outputDir string, opts ...Option) *Syncer {
	options := defaultSyncOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Syncer{
		rootDomain:  strings.TrimRight(rootDomain, "/"),
		outputDir:   outputDir,
		client:      options.HTTPClient,
		hasher:      hashing.New(options.HashWorkers, options.Logger),
		downloader:  fetch.New(options.HTTPClient, options.Concurrency, options.Logger),
		confirm:     options.Confirmer,
		newProgress: options.Progress,
		logger:      options.Logger,
	}
}

// Sync runs the full workflow: maintenance check, manifest fetch,
// staleness detection, selective download, post-download verification,
// and (when removeExtra is set) deletion of files no longer on the
// manifest.
//
// cached holds path to hash mappings from previous runs and is never
// mutated. validate forces a full re-hash of local files instead of
// trusting the cache.
func (s *Syncer) Sync(ctx context.Context, cached map[string]string, validate, removeExtra bool) (*Outcome, error) {
	under, err := s.underMaintenance(ctx)
	if err != nil {
		return nil, fmt.Errorf("maintenance check: %w", err)
	}
	if under {
		s.logger.Info("servers are currently under maintenance, try again later")
		return &Outcome{Deferred: true}, nil
	}

	entries, err := s.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	resolveEntries(entries, s.outputDir, s.rootDomain)

	stale, hashes, err := s.detectStale(ctx, entries, cached, validate)
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	if len(stale) > 0 {
		s.logger.Info("updating stale files", "count", len(stale), "total", len(entries))
		updated, err := s.update(ctx, stale)
		if err != nil {
			return nil, err
		}
		for path, sum := range updated {
			hashes[path] = sum
		}
		if len(updated) > 0 {
			out.Updated = updated
		}
	} else {
		s.logger.Info("all files are up to date", "total", len(entries))
	}

	if removeExtra {
		if doomed := s.removeRedundant(hashes, entries); doomed != nil {
			deleted := make(map[string]string, len(doomed))
			for _, path := range doomed {
				deleted[path] = hashes[path]
			}
			out.Deleted = deleted
		}
	}

	return out, nil
}

// update downloads the stale entries and re-hashes what was written.
// A hash differing from the manifest afterwards is reported as a
// warning only: the new content is what the server actually serves.
func (s *Syncer) update(ctx context.Context, stale []Entry) (map[string]string, error) {
	var total int64
	jobs := make([]fetch.Job, 0, len(stale))
	for _, e := range stale {
		total += e.Size
		jobs = append(jobs, fetch.Job{URL: e.URL, Dest: e.LocalPath})
	}

	var tracker Progress
	if s.newProgress != nil {
		tracker = s.newProgress(total)
	}

	failed := s.downloader.Fetch(ctx, jobs, tracker)

	var written []string
	for _, e := range stale {
		if _, ok := failed[e.LocalPath]; !ok {
			written = append(written, e.LocalPath)
		}
	}

	fresh, err := s.hasher.Sum(ctx, written)
	if err != nil {
		return nil, fmt.Errorf("verify downloaded files: %w", err)
	}

	for _, e := range stale {
		sum, ok := fresh[e.LocalPath]
		if !ok {
			continue
		}
		if sum != e.Hash {
			s.logger.Warn("hash of downloaded file does not match the manifest, continuing",
				"path", e.LocalPath, "want", e.Hash, "got", sum)
		}
	}
	return fresh, nil
}

// underMaintenance probes the host's maintenance marker. HTTP 200
// means the servers are under maintenance and the run must not touch
// anything; syncing during maintenance risks a corrupt install or a
// host-side penalty.
func (s *Syncer) underMaintenance(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.rootDomain+maintenancePath, nil)
	if err != nil {
		return false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}
