package configfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader(t *testing.T) {
	cfg := New("config.json")
	err := cfg.LoadFromReader(strings.NewReader(`{
		"srcDest": "/var/cache/pkgmk/sources",
		"packager": "Jane <jane@example.com>",
		"fetchConcurrency": 8,
		"fetchTimeout": "90s"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/pkgmk/sources", cfg.SrcDest)
	assert.Equal(t, "Jane <jane@example.com>", cfg.Packager)
	assert.Equal(t, 8, cfg.FetchConcurrency)

	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestLoadFromReaderEmptyAndInvalid(t *testing.T) {
	assert.NoError(t, New("x").LoadFromReader(strings.NewReader("")))
	assert.Error(t, New("x").LoadFromReader(strings.NewReader(`{"fetchTimeout": "soon"}`)))
	assert.Error(t, New("x").LoadFromReader(strings.NewReader(`{"fetchConcurrency": -1}`)))
}

func TestSave(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := New(fn)
	cfg.PkgDest = "/srv/packages"
	require.NoError(t, cfg.Save())

	fi, err := os.Stat(fn)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	f, err := os.Open(fn)
	require.NoError(t, err)
	defer f.Close()

	loaded := New(fn)
	require.NoError(t, loaded.LoadFromReader(f))
	assert.Equal(t, "/srv/packages", loaded.PkgDest)

	assert.Error(t, New("").Save())
}
