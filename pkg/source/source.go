// Package source maintains the source cache: it downloads remote sources
// into SRCDEST, verifies their checksums and stages them into $srcdir.
package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel downloads when no limit is configured.
const DefaultConcurrency = 4

// Downloader fetches the content behind a URL.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Status describes how a source was made available.
type Status int

const (
	StatusDownloaded Status = iota
	StatusCached
	StatusLocal
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "found"
	case StatusLocal:
		return "local"
	default:
		return "downloaded"
	}
}

// Result is reported once per source after it has been fetched.
type Result struct {
	Source manifest.Source
	Path   string
	Status Status
	Size   int64
}

type Options struct {
	// SrcDest is the download cache directory.
	SrcDest string
	// StartDir is the manifest directory local sources are resolved against.
	StartDir string
	// Concurrency bounds parallel downloads.
	Concurrency int
	// Force re-downloads sources already present in SrcDest.
	Force bool
}

type Cache struct {
	client      Downloader
	srcDest     string
	startDir    string
	concurrency int
	force       bool
}

func New(client Downloader, opts Options) *Cache {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SrcDest == "" {
		opts.SrcDest = opts.StartDir
	}

	return &Cache{
		client:      client,
		srcDest:     opts.SrcDest,
		startDir:    opts.StartDir,
		concurrency: opts.Concurrency,
		force:       opts.Force,
	}
}

// Path returns where the content of src lives once fetched.
func (c *Cache) Path(src manifest.Source) string {
	if src.Kind == manifest.SourceLocal {
		return src.LocalPath(c.startDir)
	}
	return filepath.Join(c.srcDest, src.Name)
}

// FetchAll makes every source available. Downloads run concurrently; the
// first failure cancels the rest.
func (c *Cache) FetchAll(ctx context.Context, sources []manifest.Source, progressFn func(Result)) error {
	if err := os.MkdirAll(c.srcDest, 0755); err != nil {
		return errors.Wrap(err, "failed to create source directory")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			res, err := c.Fetch(ctx, src)
			if err == nil && progressFn != nil {
				progressFn(res)
			}

			return err
		})
	}

	return g.Wait()
}

// Fetch makes a single source available.
func (c *Cache) Fetch(ctx context.Context, src manifest.Source) (Result, error) {
	path := c.Path(src)
	res := Result{Source: src, Path: path}

	if src.Kind == manifest.SourceLocal {
		fi, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return res, errdefs.NotFound(errors.Errorf("%s was not found in the build directory and is not a URL", src.Name))
			}
			return res, err
		}
		res.Status = StatusLocal
		res.Size = fi.Size()
		return res, nil
	}

	if !c.force {
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			log.G(ctx).WithField("source", src.Name).Debug("using cached source")
			res.Status = StatusCached
			res.Size = fi.Size()
			return res, nil
		}
	}

	size, err := c.download(ctx, src, path)
	if err != nil {
		return res, err
	}
	res.Status = StatusDownloaded
	res.Size = size
	return res, nil
}

// download streams the source into a temporary file next to path and
// renames it into place once the body was fully written.
func (c *Cache) download(ctx context.Context, src manifest.Source, path string) (int64, error) {
	f, err := os.CreateTemp(c.srcDest, "."+src.Name+".part.*")
	if err != nil {
		return 0, errors.Wrap(err, "failed to create temporary download file")
	}

	tmpPath := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}()

	start := time.Now()
	body, _, err := c.client.Download(ctx, src.Location)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to download %s", src.Name)
	}
	defer body.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to write %s to disk", src.Name)
	}

	if err := f.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, errors.Wrapf(err, "failed to move %s into place", src.Name)
	}

	log.G(ctx).WithFields(map[string]any{
		"source":   src.Name,
		"bytes":    written,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("downloaded source")

	return written, nil
}

// removeAll retries deletion to handle transient file locks (Windows specific mostly).
func removeAll(path string) error {
	var err error
	for range 3 {
		err = os.RemoveAll(path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}

		time.Sleep(100 * time.Millisecond)
	}
	return err
}
