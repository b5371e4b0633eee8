// Package state persists the verified hash cache between runs as
// zstd-compressed JSON. The cache maps absolute local file paths to
// their last verified sha256 digest and can grow to tens of thousands
// of entries, so it lives outside the config file and is compressed on
// disk.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Load reads the hash cache at path. A missing file is a cold start
// and yields an empty cache, not an error.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	defer zr.Close()

	var hashes map[string]string
	if err := json.NewDecoder(zr).Decode(&hashes); err != nil {
		return nil, fmt.Errorf("decode hash cache %s: %w", path, err)
	}
	if hashes == nil {
		hashes = map[string]string{}
	}
	return hashes, nil
}

// Save writes the hash cache to path, creating parent directories as
// needed.
func Save(path string, hashes map[string]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write hash cache: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("write hash cache: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(hashes); err != nil {
		zw.Close()
		return fmt.Errorf("encode hash cache: %w", err)
	}
	return zw.Close()
}
