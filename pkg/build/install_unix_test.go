//go:build !windows

package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"pkgmk/pkg/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallIgnoresUmaskAndExistingMode(t *testing.T) {
	dirs := setupDirs(t)
	m := manifest.JackDelayGUI("")
	m.Package = m.Package[1:]

	dest := filepath.Join(dirs.PkgDir, "usr/share/icons/hicolor/scalable/apps/Latency_test.svg")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o600))

	old := syscall.Umask(0o077)
	defer syscall.Umask(old)

	r := NewRunner(m, Options{Dirs: dirs})
	require.NoError(t, r.RunPhase(context.Background(), manifest.PhasePackage))

	fi, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o644), fi.Mode().Perm())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>\n", string(data))
}
