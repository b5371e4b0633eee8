package patchsync

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncer(t *testing.T, rootDomain, outputDir string, opts ...Option) *Syncer {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(rootDomain, outputDir, opts...)
}

func TestParseManifest(t *testing.T) {
	data := []byte("\\a.txt,deadbeef,10\r\n/dir\\b.bin,cafe,20\n\nnot a record\ntwo,fields\nfour,comma,separated,fields\n")

	entries, err := parseManifest(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, "/a.txt", entries[0].URLSuffix)
	assert.Equal(t, "deadbeef", entries[0].Hash)
	assert.Equal(t, int64(10), entries[0].Size)

	assert.Equal(t, "dir/b.bin", entries[1].Path)
	assert.Equal(t, "/dir/b.bin", entries[1].URLSuffix)
	assert.Equal(t, int64(20), entries[1].Size)
}

func TestParseManifestBadSize(t *testing.T) {
	_, err := parseManifest([]byte("/a.txt,deadbeef,ten\n"))
	require.ErrorIs(t, err, ErrManifest)
}

func TestParseManifestEmpty(t *testing.T) {
	entries, err := parseManifest([]byte("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveEntries(t *testing.T) {
	entries := []Entry{{Path: "dir/a.txt", URLSuffix: "/dir/a.txt", Hash: "deadbeef", Size: 1}}

	resolveEntries(entries, "/out", "https://patch.example.com")

	assert.Equal(t, filepath.Join("/out", "dir", "a.txt"), entries[0].LocalPath)
	assert.Equal(t, "https://patch.example.com/Patch/dir/a.txt", entries[0].URL)
}

func TestFetchManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/PatchFileList.txt", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "\\a.txt,deadbeef,10\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := testSyncer(t, srv.URL, t.TempDir())

	entries, err := s.fetchManifest(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Path)
}

func TestFetchManifestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := testSyncer(t, srv.URL, t.TempDir())

	_, err := s.fetchManifest(t.Context())
	require.ErrorIs(t, err, ErrManifest)
}
