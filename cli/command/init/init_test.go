package init

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkgmk/cli/command"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCli(t *testing.T, input string, out *bytes.Buffer) command.Cli {
	t.Helper()
	cli, err := command.NewPkgmkCli(
		command.WithInputStream(io.NopCloser(strings.NewReader(input))),
		command.WithCombinedStreams(out),
	)
	require.NoError(t, err)
	return cli
}

func TestInitDefaults(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	err := runInit(context.Background(), newCli(t, "", &out), initOptions{dir: dir, template: manifest.TemplateJackDelayGUI, yes: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "manifest created at "+filepath.Join(dir, manifest.FileName))

	m, err := manifest.ReadAndValidate(dir)
	require.NoError(t, err)
	assert.Equal(t, "jack_delay-gui", m.Pkgname)
	assert.Len(t, m.Source, 5)
	assert.Len(t, m.Md5sums, 5)
}

func TestInitPrompts(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	cli := newCli(t, "latency-gui\n\n2\ny\n", &out)
	err := runInit(context.Background(), cli, initOptions{dir: dir, template: manifest.TemplateJackDelayGUI, sourceURL: "https://mirror.example.org/latency"})
	require.NoError(t, err)

	m, err := manifest.Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "latency-gui", m.Pkgname)
	assert.Equal(t, "0.1.0", m.Pkgver)
	assert.Equal(t, "2", m.Pkgrel)
	assert.Equal(t, "https://mirror.example.org/latency/LICENSE", m.Source[0])
	assert.Contains(t, out.String(), "Is this OK? [y/N]")
}

func TestInitAborted(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	err := runInit(context.Background(), newCli(t, "\n\n\nn\n", &out), initOptions{dir: dir, template: manifest.TemplateJackDelayGUI})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Aborted.")

	_, err = os.Stat(filepath.Join(dir, manifest.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte("{}"), 0o644))

	var out bytes.Buffer
	err := runInit(context.Background(), newCli(t, "", &out), initOptions{dir: dir, template: manifest.TemplateJackDelayGUI, yes: true})
	assert.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestInitInvalidInput(t *testing.T) {
	var out bytes.Buffer
	err := runInit(context.Background(), newCli(t, "Not A Name\n\n\n", &out), initOptions{dir: t.TempDir(), template: manifest.TemplateJackDelayGUI})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidParameter(err))
}

func TestInitUnknownTemplate(t *testing.T) {
	var out bytes.Buffer
	err := runInit(context.Background(), newCli(t, "", &out), initOptions{dir: t.TempDir(), template: "nope", yes: true})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidParameter(err))
	assert.ErrorContains(t, err, manifest.TemplateJackDelayGUI)
}
