package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"pkgmk/pkg/config/configfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirEnvOverride(t *testing.T) {
	defer resetConfigDir()

	dir := t.TempDir()
	t.Setenv(EnvOverrideConfigDir, dir)
	resetConfigDir()
	assert.Equal(t, dir, Dir())

	SetDir(filepath.Join(dir, "other") + "/")
	assert.Equal(t, filepath.Join(dir, "other"), Dir())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Filename)
	assert.Empty(t, cfg.SrcDest)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"srcDest": "/cache"}`), 0o600))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/cache", cfg.SrcDest)
}

func TestLoadDefaultConfigFileWarns(t *testing.T) {
	defer resetConfigDir()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{not json`), 0o600))
	SetDir(dir)

	var stderr bytes.Buffer
	cfg := LoadDefaultConfigFile(&stderr)
	require.NotNil(t, cfg)
	assert.Contains(t, stderr.String(), "WARNING: Error")
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Filename)
}

func TestResolveDirs(t *testing.T) {
	t.Setenv(EnvSrcDest, "")
	t.Setenv(EnvBuildDir, "")
	t.Setenv(EnvPkgDest, "")

	start := "/home/builder/jack_delay-gui"
	d := ResolveDirs(nil, start)
	assert.Equal(t, Dirs{StartDir: start, SrcDest: start, BuildDir: start, PkgDest: start}, d)
	assert.Equal(t, start+"/src", d.SrcDir())
	assert.Equal(t, start+"/pkg/jack_delay-gui", d.PkgDir("jack_delay-gui"))

	cfg := configfile.New("")
	cfg.SrcDest = "/var/cache/sources"
	cfg.BuildDir = "work"
	d = ResolveDirs(cfg, start)
	assert.Equal(t, "/var/cache/sources", d.SrcDest)
	assert.Equal(t, start+"/work", d.BuildDir)

	t.Setenv(EnvSrcDest, "/tmp/override")
	d = ResolveDirs(cfg, start)
	assert.Equal(t, "/tmp/override", d.SrcDest)
}

func TestPackager(t *testing.T) {
	t.Setenv(EnvPackager, "")
	cfg := configfile.New("")
	cfg.Packager = "From Config <c@example.com>"
	assert.Equal(t, "From Config <c@example.com>", Packager(cfg))

	t.Setenv(EnvPackager, "From Env <e@example.com>")
	assert.Equal(t, "From Env <e@example.com>", Packager(cfg))
}
