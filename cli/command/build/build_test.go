package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"pkgmk/cli/command"
	"pkgmk/pkg/config"
	"pkgmk/pkg/manifest"

	"github.com/cli/safeexec"
	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, m *manifest.Manifest) (command.Cli, *command.Workspace, *bytes.Buffer) {
	t.Helper()
	config.SetDir(t.TempDir())
	t.Setenv(config.EnvBuildDir, "")
	t.Setenv(config.EnvSrcDest, "")

	dir := t.TempDir()
	require.NoError(t, manifest.Write(m, dir))

	var out bytes.Buffer
	cli, err := command.NewPkgmkCli(command.WithCombinedStreams(&out))
	require.NoError(t, err)

	ws, err := command.LoadWorkspace(cli, dir)
	require.NoError(t, err)
	return cli, ws, &out
}

func localManifest() *manifest.Manifest {
	m := manifest.JackDelayGUI("")
	m.Depends = nil
	m.Source = nil
	m.Md5sums = nil
	return m
}

func TestNoExtractRequiresSourceTree(t *testing.T) {
	cli, ws, _ := setup(t, localManifest())

	err := Run(context.Background(), cli, ws, Options{NoExtract: true})
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestNoExtractSkipsPrepare(t *testing.T) {
	if _, err := safeexec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	m := localManifest()
	m.Prepare = []manifest.Step{{Run: "sh -c \"touch prepared\""}}
	m.Build = []manifest.Step{{Run: "sh -c \"touch built\""}}
	m.Check = []manifest.Step{{Run: "sh -c \"touch checked\""}}
	cli, ws, out := setup(t, m)
	require.NoError(t, os.MkdirAll(ws.SrcDir(), 0o755))

	require.NoError(t, Run(context.Background(), cli, ws, Options{NoExtract: true, NoCheck: true}))

	for name, want := range map[string]bool{"prepared": false, "built": true, "checked": false} {
		_, err := os.Stat(filepath.Join(ws.SrcDir(), name))
		assert.Equal(t, want, err == nil, name)
	}
	assert.Contains(t, out.String(), "Using existing")
}

func TestBuildRunsAllPhases(t *testing.T) {
	if _, err := safeexec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	m := localManifest()
	m.Prepare = []manifest.Step{{Run: "sh -c \"touch prepared\""}}
	m.Build = []manifest.Step{{Run: "sh -c \"test -f prepared && touch built\""}}
	m.Check = []manifest.Step{{Run: "sh -c \"test -f built && touch checked\""}}
	cli, ws, out := setup(t, m)

	require.NoError(t, Run(context.Background(), cli, ws, Options{}))
	_, err := os.Stat(filepath.Join(ws.SrcDir(), "checked"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Starting prepare()...")
	assert.Contains(t, out.String(), "Starting check()...")
}

func TestUnsupportedArch(t *testing.T) {
	m := localManifest()
	m.Arch = []string{"definitely-not-this-host"}
	cli, ws, _ := setup(t, m)

	err := Run(context.Background(), cli, ws, Options{NoDeps: true})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidParameter(err))
}
