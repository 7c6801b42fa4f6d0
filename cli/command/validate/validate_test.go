package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"pkgmk/cli/command"
	"pkgmk/pkg/config"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCli(t *testing.T, out *bytes.Buffer) command.Cli {
	t.Helper()
	config.SetDir(t.TempDir())
	cli, err := command.NewPkgmkCli(command.WithCombinedStreams(out))
	require.NoError(t, err)
	return cli
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, manifest.Write(manifest.JackDelayGUI(""), dir))

	var out bytes.Buffer
	require.NoError(t, runValidate(newCli(t, &out), validateOptions{dir: dir}))
	assert.Equal(t, "manifest is valid\n", out.String())
}

func TestValidateReportsAllErrors(t *testing.T) {
	dir := t.TempDir()
	m := manifest.JackDelayGUI("")
	m.Pkgname = "Bad Name"
	m.Md5sums = m.Md5sums[:3]
	require.NoError(t, manifest.Write(m, dir))

	var out bytes.Buffer
	err := runValidate(newCli(t, &out), validateOptions{dir: dir})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidParameter(err))
	assert.ErrorContains(t, err, "pkgname")
	assert.ErrorContains(t, err, "md5sums")
	assert.Empty(t, out.String())
}

func TestValidateMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(`{"pkgname": 1}`), 0o644))

	var out bytes.Buffer
	err := runValidate(newCli(t, &out), validateOptions{dir: dir})
	assert.True(t, errdefs.IsInvalidParameter(err))
}
