// Package pkginfo renders the .PKGINFO metadata stored in package archives.
package pkginfo

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pkgmk/pkg/manifest"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// FileName is the name of the metadata file at the archive root.
const FileName = ".PKGINFO"

// DefaultPackager is recorded when no packager is configured.
const DefaultPackager = "Unknown Packager"

// Info holds the metadata of a built package.
type Info struct {
	Pkgname     string
	Pkgbase     string
	Version     string
	Pkgdesc     string
	URL         string
	BuildDate   time.Time
	Packager    string
	Size        int64
	Arch        string
	License     []string
	Depends     []string
	Makedepends []string
	Generator   string
}

// New collects the package metadata of m for arch.
func New(m *manifest.Manifest, arch string, size int64, buildDate time.Time, packager string) *Info {
	if packager == "" {
		packager = DefaultPackager
	}

	return &Info{
		Pkgname:     m.Pkgname,
		Pkgbase:     m.Pkgname,
		Version:     m.FullVersion(),
		Pkgdesc:     m.Pkgdesc,
		URL:         m.URL,
		BuildDate:   buildDate,
		Packager:    packager,
		Size:        size,
		Arch:        arch,
		License:     m.License,
		Depends:     m.Depends,
		Makedepends: m.Makedepends,
	}
}

// WriteTo renders the metadata as "key = value" lines.
func (i *Info) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	generator := i.Generator
	if generator == "" {
		generator = "pkgmk"
	}
	fmt.Fprintf(&buf, "# Generated by %s\n", generator)

	kv := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s = %s\n", key, value)
		}
	}
	kvs := func(key string, values []string) {
		for _, v := range values {
			kv(key, v)
		}
	}

	kv("pkgname", i.Pkgname)
	kv("pkgbase", i.Pkgbase)
	kv("pkgver", i.Version)
	kv("pkgdesc", i.Pkgdesc)
	kv("url", i.URL)
	kv("builddate", strconv.FormatInt(i.BuildDate.Unix(), 10))
	kv("packager", i.Packager)
	kv("size", strconv.FormatInt(i.Size, 10))
	kv("arch", i.Arch)
	kvs("license", i.License)
	kvs("depend", i.Depends)
	kvs("makedepend", i.Makedepends)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Write stores the metadata as .PKGINFO in pkgdir.
func (i *Info) Write(pkgdir string) error {
	var buf bytes.Buffer
	if _, err := i.WriteTo(&buf); err != nil {
		return err
	}
	if err := renameio.WriteFile(filepath.Join(pkgdir, FileName), buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "failed to write "+FileName)
	}
	return nil
}

// InstalledSize sums the sizes of the regular files under dir, skipping
// the metadata file itself.
func InstalledSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || (d.Name() == FileName && filepath.Dir(path) == filepath.Clean(dir)) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		size += fi.Size()
		return nil
	})
	return size, err
}

// BuildDate returns SOURCE_DATE_EPOCH when set, otherwise now.
func BuildDate() time.Time {
	if v := os.Getenv("SOURCE_DATE_EPOCH"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}
	return time.Now().UTC()
}
