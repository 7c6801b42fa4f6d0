package pkginfo

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkgmk/pkg/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTo(t *testing.T) {
	m := manifest.JackDelayGUI("")
	m.Epoch = 1
	m.Makedepends = []string{"python-setuptools"}

	info := New(m, "any", 4096, time.Unix(1700000000, 0), "")

	var buf bytes.Buffer
	_, err := info.WriteTo(&buf)
	require.NoError(t, err)

	want := "# Generated by pkgmk\n" +
		"pkgname = jack_delay-gui\n" +
		"pkgbase = jack_delay-gui\n" +
		"pkgver = 1:0.1.0-1\n" +
		"pkgdesc = " + m.Pkgdesc + "\n" +
		"url = " + m.URL + "\n" +
		"builddate = 1700000000\n" +
		"packager = Unknown Packager\n" +
		"size = 4096\n" +
		"arch = any\n" +
		"license = GPL-3.0-or-later\n" +
		"depend = python-pyqt6\n" +
		"depend = python-jack-client\n" +
		"depend = jack_delay\n" +
		"makedepend = python-setuptools\n"
	assert.Equal(t, want, buf.String())
}

func TestInstalledSizeAndWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "usr/share"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usr/share/a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 23), 0o644))

	size, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(123), size)

	info := New(manifest.JackDelayGUI(""), "any", size, time.Unix(0, 0), "Jane <jane@example.com>")
	require.NoError(t, info.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "packager = Jane <jane@example.com>\n")
	assert.Contains(t, string(data), "size = 123\n")

	size, err = InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(123), size, "metadata file is not counted")
}

func TestBuildDate(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1234567890")
	assert.Equal(t, int64(1234567890), BuildDate().Unix())

	t.Setenv("SOURCE_DATE_EPOCH", "garbage")
	assert.WithinDuration(t, time.Now(), BuildDate(), time.Minute)
}
