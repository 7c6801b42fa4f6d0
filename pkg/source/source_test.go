package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"pkgmk/pkg/checksum"
	"pkgmk/pkg/fetch"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var files = map[string]string{
	"LICENSE":                     "GPL-3.0-or-later\n",
	"latency_test.py":             "#!/usr/bin/env python3\n",
	"com.example.latency.desktop": "[Desktop Entry]\nName=Latency test\n",
	"Latency_test.svg":            "<svg xmlns=\"http://www.w3.org/2000/svg\"/>\n",
	"setup.py":                    "from setuptools import setup\n",
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

type server struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newServer(t *testing.T, content map[string][]byte) *server {
	t.Helper()
	s := &server{hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		s.mu.Lock()
		s.hits[name]++
		s.mu.Unlock()

		data, ok := content[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

func templateSources(t *testing.T, baseURL string, sums bool) []manifest.Source {
	t.Helper()
	m := manifest.JackDelayGUI(baseURL)
	if sums {
		for i, entry := range m.Source {
			src, err := manifest.ParseSource(entry)
			require.NoError(t, err)
			m.Md5sums[i] = md5hex(files[src.Name])
		}
	}
	sources, err := m.Sources()
	require.NoError(t, err)
	return sources
}

func serverContent() map[string][]byte {
	content := map[string][]byte{}
	for name, data := range files {
		content[name] = []byte(data)
	}
	return content
}

func TestFetchVerifyStage(t *testing.T) {
	srv := newServer(t, serverContent())
	startdir := t.TempDir()
	srcdest := filepath.Join(startdir, "cache")

	cache := New(fetch.NewClient(fetch.ClientOptions{}), Options{SrcDest: srcdest, StartDir: startdir, Concurrency: 2})
	sources := templateSources(t, srv.URL, true)

	var reported atomic.Int32
	err := cache.FetchAll(context.Background(), sources, func(res Result) {
		reported.Add(1)
		assert.Equal(t, StatusDownloaded, res.Status)
		assert.Equal(t, int64(len(files[res.Source.Name])), res.Size)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(5), reported.Load())

	for name, data := range files {
		got, err := os.ReadFile(filepath.Join(srcdest, name))
		require.NoError(t, err)
		assert.Equal(t, data, string(got))
	}

	entries, err := os.ReadDir(srcdest)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "no temporary files left behind")

	checks, err := cache.Verify(sources, []checksum.Algorithm{checksum.MD5})
	require.NoError(t, err)
	require.Len(t, checks, 5)
	for _, c := range checks {
		assert.True(t, c.Passed(), c.Source.Name)
	}

	srcdir := filepath.Join(startdir, "src")
	require.NoError(t, cache.Stage(context.Background(), sources, srcdir, nil))
	got, err := os.ReadFile(filepath.Join(srcdir, "setup.py"))
	require.NoError(t, err)
	assert.Equal(t, files["setup.py"], string(got))

	// staging twice replaces the existing links
	require.NoError(t, cache.Stage(context.Background(), sources, srcdir, nil))
}

func TestFetchReusesCachedFiles(t *testing.T) {
	srv := newServer(t, serverContent())
	startdir := t.TempDir()
	sources := templateSources(t, srv.URL, false)

	cache := New(fetch.NewClient(fetch.ClientOptions{}), Options{StartDir: startdir})
	require.NoError(t, cache.FetchAll(context.Background(), sources, nil))

	var statuses []Status
	var mu sync.Mutex
	require.NoError(t, cache.FetchAll(context.Background(), sources, func(res Result) {
		mu.Lock()
		statuses = append(statuses, res.Status)
		mu.Unlock()
	}))
	assert.Equal(t, 1, srv.count("setup.py"))
	for _, s := range statuses {
		assert.Equal(t, StatusCached, s)
	}

	forced := New(fetch.NewClient(fetch.ClientOptions{}), Options{StartDir: startdir, Force: true})
	require.NoError(t, forced.FetchAll(context.Background(), sources, nil))
	assert.Equal(t, 2, srv.count("setup.py"))
}

func TestVerifyMismatchIsDataLoss(t *testing.T) {
	content := serverContent()
	content["setup.py"] = []byte("tampered\n")
	srv := newServer(t, content)

	startdir := t.TempDir()
	sources := templateSources(t, srv.URL, true)
	cache := New(fetch.NewClient(fetch.ClientOptions{}), Options{StartDir: startdir})
	require.NoError(t, cache.FetchAll(context.Background(), sources, nil))

	checks, err := cache.Verify(sources, []checksum.Algorithm{checksum.MD5})
	require.Error(t, err)
	assert.True(t, errdefs.IsDataLoss(err))
	assert.Contains(t, err.Error(), "setup.py md5 mismatch")

	failed := 0
	for _, c := range checks {
		if c.Err != nil {
			failed++
			assert.Equal(t, "setup.py", c.Source.Name)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestVerifySkipAndMissing(t *testing.T) {
	startdir := t.TempDir()
	cache := New(nil, Options{StartDir: startdir})

	skipped := []manifest.Source{{Name: "LICENSE", Location: "LICENSE", Kind: manifest.SourceLocal, MD5: checksum.Skip}}
	checks, err := cache.Verify(skipped, []checksum.Algorithm{checksum.MD5})
	require.NoError(t, err)
	assert.True(t, checks[0].Skipped)

	missing := []manifest.Source{{Name: "LICENSE", Location: "LICENSE", Kind: manifest.SourceLocal, MD5: md5hex("x")}}
	_, err = cache.Verify(missing, []checksum.Algorithm{checksum.MD5})
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestFetchHTTPFailureLeavesNoFile(t *testing.T) {
	srv := newServer(t, map[string][]byte{})
	startdir := t.TempDir()
	sources := templateSources(t, srv.URL, false)

	cache := New(fetch.NewClient(fetch.ClientOptions{}), Options{StartDir: startdir, Concurrency: 1})
	err := cache.FetchAll(context.Background(), sources, nil)
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	entries, err := os.ReadDir(startdir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchLocalSources(t *testing.T) {
	startdir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(startdir, "LICENSE"), []byte(files["LICENSE"]), 0o644))

	src, err := manifest.ParseSource("LICENSE")
	require.NoError(t, err)
	cache := New(nil, Options{StartDir: startdir})

	res, err := cache.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, StatusLocal, res.Status)
	assert.Equal(t, filepath.Join(startdir, "LICENSE"), res.Path)

	missing, err := manifest.ParseSource("missing.patch")
	require.NoError(t, err)
	_, err = cache.Fetch(context.Background(), missing)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStageExtractsArchives(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "jack_delay-gui-0.1.0/setup.py", Typeflag: tar.TypeReg, Mode: 0o644, Size: 3}))
	_, err := tw.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	t.Setenv("PKGMK_NO_PIGZ", "1")
	startdir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(startdir, "release.tar.gz"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(startdir, "keep.tar.gz"), buf.Bytes(), 0o644))

	var sources []manifest.Source
	for _, entry := range []string{"release.tar.gz", "keep.tar.gz"} {
		src, err := manifest.ParseSource(entry)
		require.NoError(t, err)
		sources = append(sources, src)
	}

	srcdir := filepath.Join(startdir, "src")
	cache := New(nil, Options{StartDir: startdir})
	require.NoError(t, cache.Stage(context.Background(), sources, srcdir, []string{"keep.*"}))

	data, err := os.ReadFile(filepath.Join(srcdir, "jack_delay-gui-0.1.0", "setup.py"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.FileExists(t, filepath.Join(srcdir, "release.tar.gz"))
	assert.FileExists(t, filepath.Join(srcdir, "keep.tar.gz"))
}

func TestStageCopiesLocalDirectories(t *testing.T) {
	startdir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(startdir, "patches"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(startdir, "patches", "fix.patch"), []byte("diff"), 0o644))

	src, err := manifest.ParseSource("patches")
	require.NoError(t, err)

	srcdir := filepath.Join(startdir, "src")
	cache := New(nil, Options{StartDir: startdir})
	require.NoError(t, cache.Stage(context.Background(), []manifest.Source{src}, srcdir, nil))

	fi, err := os.Lstat(filepath.Join(srcdir, "patches"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.FileExists(t, filepath.Join(srcdir, "patches", "fix.patch"))

	sums, err := cache.Sums([]manifest.Source{src}, checksum.MD5)
	require.NoError(t, err)
	assert.Equal(t, []string{checksum.Skip}, sums)
}

func TestAlgorithms(t *testing.T) {
	m := manifest.JackDelayGUI("https://example.com")
	assert.Equal(t, []checksum.Algorithm{checksum.MD5}, Algorithms(m))

	m.Sha256sums = []string{checksum.Skip}
	assert.Equal(t, []checksum.Algorithm{checksum.MD5, checksum.SHA256}, Algorithms(m))
}
