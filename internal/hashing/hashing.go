// Package hashing computes sha256 content digests for batches of
// files. It shells out to the platform's sha256sum binary where one
// exists and falls back to a streaming pure Go implementation when the
// tool is missing or misbehaves. Both strategies produce the same hex
// digests; callers never see the difference.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// readChunk is the buffer size for the streaming fallback. Manifests
// can include large binary assets, so files are never read whole.
const readChunk = 8 * 1024

// Hasher computes digests with a bounded worker pool.
type Hasher struct {
	workers int
	tool    string
	logger  *slog.Logger
}

// New creates a Hasher. workers <= 0 means one worker per CPU.
func New(workers int, logger *slog.Logger) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hasher{workers: workers, tool: nativeTool(), logger: logger}
}

// Sum returns the hex sha256 digest of every file, keyed by its path
// as given. Files are hashed concurrently; any failure of the native
// tool discards the whole batch and retries with the pure Go path.
func (h *Hasher) Sum(ctx context.Context, paths []string) (map[string]string, error) {
	if len(paths) == 0 {
		return map[string]string{}, nil
	}

	if h.tool != "" {
		sums, err := h.sumNative(ctx, paths)
		if err == nil {
			return sums, nil
		}
		h.logger.Debug("native hashing failed, falling back to pure go", "tool", h.tool, "error", err)
	}
	return h.sumPortable(ctx, paths)
}

func (h *Hasher) sumNative(ctx context.Context, paths []string) (map[string]string, error) {
	sums := make(map[string]string, len(paths))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(h.workers).WithErrors()
	for _, path := range paths {
		p.Go(func() error {
			out, err := exec.CommandContext(ctx, h.tool, path).Output()
			if err != nil {
				return fmt.Errorf("%s %s: %w", h.tool, path, err)
			}
			fields := strings.Fields(string(out))
			if len(fields) < 2 || len(fields[0]) != sha256.Size*2 {
				return fmt.Errorf("%s: unexpected output %q", h.tool, out)
			}
			mu.Lock()
			sums[path] = fields[0]
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func (h *Hasher) sumPortable(ctx context.Context, paths []string) (map[string]string, error) {
	sums := make(map[string]string, len(paths))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(h.workers).WithContext(ctx)
	for _, path := range paths {
		p.Go(func(ctx context.Context) error {
			sum, err := fileDigest(path)
			if err != nil {
				return err
			}
			mu.Lock()
			sums[path] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	digest := sha256.New()
	if _, err := io.CopyBuffer(digest, f, make([]byte, readChunk)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// nativeTool returns the path of a usable sha256sum binary, or "" when
// the platform has none.
func nativeTool() string {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return ""
	}
	path, err := exec.LookPath("sha256sum")
	if err != nil {
		return ""
	}
	return path
}
