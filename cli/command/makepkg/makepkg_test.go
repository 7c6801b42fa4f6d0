package makepkg

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkgmk/cli/command"
	"pkgmk/pkg/config"
	"pkgmk/pkg/fetch"
	"pkgmk/pkg/manifest"

	"github.com/cli/safeexec"
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

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := safeexec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

// setupWorkspace serves the sources over HTTP and writes a manifest whose
// setup.py steps are replaced by shell commands.
func setupWorkspace(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(data))
	}))
	t.Cleanup(srv.Close)

	config.SetDir(t.TempDir())
	for _, env := range []string{config.EnvSrcDest, config.EnvBuildDir, config.EnvPkgDest, config.EnvPackager} {
		t.Setenv(env, "")
	}
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")

	m := manifest.JackDelayGUI(srv.URL)
	m.Depends = nil
	for i, entry := range m.Source {
		src, err := manifest.ParseSource(entry)
		require.NoError(t, err)
		sum := md5.Sum([]byte(files[src.Name]))
		m.Md5sums[i] = hex.EncodeToString(sum[:])
	}
	m.Build = []manifest.Step{{Run: `sh -c "mkdir -p build/lib && cp latency_test.py build/lib/"`}}
	m.Package[0] = manifest.Step{Run: `sh -c "mkdir -p $pkgdir/usr/lib/python3/site-packages && cp build/lib/latency_test.py $pkgdir/usr/lib/python3/site-packages/"`}

	dir := t.TempDir()
	require.NoError(t, manifest.Write(m, dir))
	return dir
}

func newCli(t *testing.T, out *bytes.Buffer) *command.PkgmkCli {
	t.Helper()
	cli, err := command.NewPkgmkCli(
		command.WithCombinedStreams(out),
		command.WithHTTPClient(fetch.NewClient(fetch.ClientOptions{})),
	)
	require.NoError(t, err)
	return cli
}

func runCommand(t *testing.T, cli command.Cli, args ...string) error {
	t.Helper()
	cmd := NewMakepkgCommand(cli)
	cmd.SetArgs(args)
	cmd.SetOut(cli.Out())
	cmd.SetErr(cli.Err())
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

func TestMakepkg(t *testing.T) {
	requireShell(t)
	dir := setupWorkspace(t)

	var out bytes.Buffer
	require.NoError(t, runCommand(t, newCli(t, &out), "-C", dir, "--nodeps"))

	pkgdir := filepath.Join(dir, "pkg", "jack_delay-gui")
	for _, rel := range []string{
		"usr/share/icons/hicolor/scalable/apps/Latency_test.svg",
		"usr/share/applications/com.example.latency.desktop",
	} {
		fi, err := os.Stat(filepath.Join(pkgdir, rel))
		require.NoError(t, err, rel)
		assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm(), rel)
	}
	_, err := os.Stat(filepath.Join(pkgdir, "usr/lib/python3/site-packages/latency_test.py"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "jack_delay-gui-0.1.0-1-any.pkg.tar.zst"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Downloaded setup.py")
	assert.Contains(t, out.String(), "setup.py ... Passed")
	assert.Contains(t, out.String(), "Starting build()...")
	assert.Contains(t, out.String(), "sha256:")
	assert.Contains(t, out.String(), "Finished making: jack_delay-gui 0.1.0-1")
}

func TestMakepkgRerunReusesSources(t *testing.T) {
	requireShell(t)
	dir := setupWorkspace(t)

	var out bytes.Buffer
	require.NoError(t, runCommand(t, newCli(t, &out), "-C", dir, "--nodeps", "--no-archive"))

	out.Reset()
	require.NoError(t, runCommand(t, newCli(t, &out), "-C", dir, "--nodeps", "--no-archive"))
	assert.Contains(t, out.String(), "Found setup.py")
	assert.NotContains(t, out.String(), "Downloaded")

	_, err := os.Stat(filepath.Join(dir, "jack_delay-gui-0.1.0-1-any.pkg.tar.zst"))
	assert.True(t, os.IsNotExist(err))
}

func TestMakepkgChecksumMismatch(t *testing.T) {
	requireShell(t)
	dir := setupWorkspace(t)

	m, err := manifest.Read(dir)
	require.NoError(t, err)
	m.Md5sums[4] = "00000000000000000000000000000000"
	require.NoError(t, manifest.Write(m, dir))

	var out bytes.Buffer
	err = runCommand(t, newCli(t, &out), "-C", dir, "--nodeps")
	require.Error(t, err)
	assert.True(t, errdefs.IsDataLoss(err))
	assert.Contains(t, out.String(), "setup.py ... FAILED")

	_, err = os.Stat(filepath.Join(dir, "pkg"))
	assert.True(t, os.IsNotExist(err), "nothing is packaged after a failed verification")
}

func TestMakepkgMissingManifest(t *testing.T) {
	config.SetDir(t.TempDir())

	var out bytes.Buffer
	err := runCommand(t, newCli(t, &out), "-C", t.TempDir())
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestTimestamp(t *testing.T) {
	ts := timestamp(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC))
	assert.Contains(t, ts, "2024")
	assert.Contains(t, ts, "Mar")
}
