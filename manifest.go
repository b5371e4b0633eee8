package patchsync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	manifestPath = "/PatchFileList.txt"
	patchPath    = "/Patch"
)

// Entry is one record of the remote patch manifest.
type Entry struct {
	// Path is the file's location relative to the output root, with
	// leading separators stripped.
	Path string
	// URLSuffix is the record's own path token, appended as-is to the
	// patch root URL.
	URLSuffix string
	// Hash is the expected hex sha256 digest of the file content.
	Hash string
	// Size is the expected file size in bytes.
	Size int64

	// LocalPath and URL are populated by resolveEntries once the
	// output root and root domain are known.
	LocalPath string
	URL       string
}

// parseManifest splits raw manifest bytes into entries. One record per
// line, three comma-separated fields: path, sha256, size. Backslashes
// are normalized to forward slashes first. Lines that do not split
// into exactly three fields are skipped; a size field that is not an
// integer makes the whole manifest unusable.
func parseManifest(data []byte) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.ReplaceAll(strings.TrimRight(line, "\r"), `\`, "/")
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			continue
		}

		size, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: size field %q", ErrManifest, fields[2])
		}

		path := strings.TrimLeft(fields[0], "/")
		if path == "" {
			continue
		}

		entries = append(entries, Entry{
			Path:      path,
			URLSuffix: fields[0],
			Hash:      fields[1],
			Size:      size,
		})
	}
	return entries, nil
}

// resolveEntries fills in the derived local path and download URL for
// every entry.
func resolveEntries(entries []Entry, outputDir, rootDomain string) {
	patchRoot := rootDomain + patchPath
	for i := range entries {
		entries[i].LocalPath = filepath.Join(outputDir, filepath.FromSlash(entries[i].Path))
		entries[i].URL = patchRoot + entries[i].URLSuffix
	}
}

func (s *Syncer) fetchManifest(ctx context.Context) ([]Entry, error) {
	url := s.rootDomain + manifestPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrManifest, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: unexpected status %s", ErrManifest, url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrManifest, url, err)
	}

	entries, err := parseManifest(data)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("manifest fetched", "url", url, "entries", len(entries))
	return entries, nil
}
