package build

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pkgmk/pkg/archive"
	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"
	"pkgmk/pkg/pkginfo"

	"github.com/fvbommel/sortorder"
	"github.com/google/renameio/v2"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

type ArchiveOptions struct {
	PkgDir   string
	PkgDest  string
	Arch     string
	Packager string
	// BuildDate is recorded in .PKGINFO and clamps entry mtimes.
	BuildDate time.Time
}

// Artifact describes a written package archive.
type Artifact struct {
	Path   string
	Size   int64
	Digest digest.Digest
	Info   *pkginfo.Info
}

// CreateArchive writes .PKGINFO into the package directory and packs it
// into PkgDest as a zstd compressed tarball with .PKGINFO as first entry.
func CreateArchive(ctx context.Context, m *manifest.Manifest, opts ArchiveOptions) (*Artifact, error) {
	if opts.BuildDate.IsZero() {
		opts.BuildDate = pkginfo.BuildDate()
	}
	if opts.Arch == "" {
		opts.Arch = m.Arch[0]
	}

	size, err := pkginfo.InstalledSize(opts.PkgDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute installed size")
	}

	info := pkginfo.New(m, opts.Arch, size, opts.BuildDate, opts.Packager)
	if err := info.Write(opts.PkgDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.PkgDest, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create package destination")
	}
	dest := filepath.Join(opts.PkgDest, m.ArchiveName(opts.Arch))

	rdr, err := archive.Tar(opts.PkgDir, &archive.TarOptions{
		IncludeFiles: []string{pkginfo.FileName, "."},
		Compression:  archive.Zstd,
		RootOwned:    true,
		ModTime:      opts.BuildDate,
	})
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	pf, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0644))
	if err != nil {
		return nil, err
	}
	defer pf.Cleanup()

	digester := digest.SHA256.Digester()
	written, err := io.Copy(io.MultiWriter(pf, digester.Hash()), rdr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write package archive")
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return nil, errors.Wrap(err, "failed to write package archive")
	}

	log.G(ctx).WithField("archive", dest).Debugf("wrote %d bytes", written)

	return &Artifact{
		Path:   dest,
		Size:   written,
		Digest: digester.Digest(),
		Info:   info,
	}, nil
}

// File is an entry of the package directory.
type File struct {
	Path string
	Size int64
	Mode fs.FileMode
}

// ListFiles returns the regular files and symlinks under dir in natural
// order, with paths relative to dir.
func ListFiles(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Size: fi.Size(), Mode: fi.Mode()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortFiles(files)
	return files, nil
}

func sortFiles(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		return sortorder.NaturalLess(files[i].Path, files[j].Path)
	})
}
