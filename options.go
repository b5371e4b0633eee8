package patchsync

import (
	"log/slog"
	"net/http"

	"github.com/aweris/patchsync/internal/fetch"
)

// Progress receives cumulative byte counts from concurrent downloads.
// Implementations must be safe for concurrent use.
type Progress = fetch.Tracker

// Confirmer answers yes/no questions put to the operator before a
// destructive action proceeds.
type Confirmer interface {
	Confirm(question string, def bool) bool
}

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(question string, def bool) bool

func (f ConfirmFunc) Confirm(question string, def bool) bool { return f(question, def) }

// defaultConfirmer answers every question with its default, which keeps
// non-interactive runs safe: bulk deletion defaults to "no".
type defaultConfirmer struct{}

func (defaultConfirmer) Confirm(_ string, def bool) bool { return def }

// SyncOptions configures a Syncer.
type SyncOptions struct {
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Confirmer   Confirmer
	Concurrency int
	HashWorkers int
	Progress    func(totalBytes int64) Progress
}

// Option is a functional option for configuring New.
type Option func(*SyncOptions)

func defaultSyncOptions() *SyncOptions {
	return &SyncOptions{
		HTTPClient:  http.DefaultClient,
		Logger:      slog.Default(),
		Confirmer:   defaultConfirmer{},
		Concurrency: fetch.DefaultConcurrency,
	}
}

// WithHTTPClient sets the client used for all remote calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *SyncOptions) {
		if c != nil {
			o.HTTPClient = c
		}
	}
}

// WithLogger sets the structured event sink for the run.
func WithLogger(l *slog.Logger) Option {
	return func(o *SyncOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithConfirmer sets the operator confirmation prompt.
func WithConfirmer(c Confirmer) Option {
	return func(o *SyncOptions) {
		if c != nil {
			o.Confirmer = c
		}
	}
}

// WithConcurrency sets the number of parallel downloads.
func WithConcurrency(n int) Option {
	return func(o *SyncOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithHashWorkers sets the number of parallel hashing workers
// (default: one per CPU).
func WithHashWorkers(n int) Option {
	return func(o *SyncOptions) {
		if n > 0 {
			o.HashWorkers = n
		}
	}
}

// WithProgress sets the factory for the shared download progress
// indicator. It is invoked once per run with the total number of bytes
// expected across all stale files.
func WithProgress(fn func(totalBytes int64) Progress) Option {
	return func(o *SyncOptions) { o.Progress = fn }
}
