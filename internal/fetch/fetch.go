// Package fetch retrieves batches of files over HTTP with a bounded
// worker pool, streaming each response body straight to disk.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency bounds parallel downloads. The remote host may
// rate-limit and the local disk may saturate, so unbounded parallelism
// is rejected.
const DefaultConcurrency = 4

// writeChunk is the copy buffer size for streaming bodies to disk.
const writeChunk = 32 * 1024

// Job is one file to retrieve.
type Job struct {
	URL  string
	Dest string
}

// Tracker receives cumulative byte counts across all concurrent
// downloads. Implementations must be safe for concurrent use.
type Tracker interface {
	Add(n int)
}

// Downloader fetches jobs with bounded concurrency.
type Downloader struct {
	client  *http.Client
	workers int
	logger  *slog.Logger
}

// New creates a Downloader. workers <= 0 means DefaultConcurrency.
func New(client *http.Client, workers int, logger *slog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{client: client, workers: workers, logger: logger}
}

// Fetch retrieves every job, creating parent directories as needed and
// reporting written bytes to tracker. Failures are isolated per job:
// one bad download never stops the others. The returned map holds the
// error for each destination that could not be written; deciding
// whether any of them is fatal is the caller's concern.
func (d *Downloader) Fetch(ctx context.Context, jobs []Job, tracker Tracker) map[string]error {
	failed := make(map[string]error)
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(d.workers)
	for _, job := range jobs {
		p.Go(func() {
			if err := d.fetchOne(ctx, job, tracker); err != nil {
				d.logger.Warn("download failed, continuing", "url", job.URL, "error", err)
				mu.Lock()
				failed[job.Dest] = err
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return failed
}

func (d *Downloader) fetchOne(ctx context.Context, job Job, tracker Tracker) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", job.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %s", job.URL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(job.Dest), 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.Create(job.Dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", job.Dest, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if tracker != nil {
		w = &trackedWriter{w: f, tracker: tracker}
	}
	if _, err := io.CopyBuffer(w, resp.Body, make([]byte, writeChunk)); err != nil {
		return fmt.Errorf("write %s: %w", job.Dest, err)
	}
	return nil
}

// trackedWriter forwards writes and reports their sizes to the shared
// tracker.
type trackedWriter struct {
	w       io.Writer
	tracker Tracker
}

func (tw *trackedWriter) Write(p []byte) (int, error) {
	n, err := tw.w.Write(p)
	tw.tracker.Add(n)
	return n, err
}
