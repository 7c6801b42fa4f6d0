package source

import (
	"context"
	"os"
	"path/filepath"

	"pkgmk/pkg/archive"
	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"

	"github.com/moby/patternmatcher"
	"github.com/otiai10/copy"
	"github.com/pkg/errors"
)

// Stage places every fetched source into srcdir under its name. Cached
// remote sources are symlinked, local directories are copied, and tar
// archives are extracted unless their name matches a noextract pattern.
func (c *Cache) Stage(ctx context.Context, sources []manifest.Source, srcdir string, noextract []string) error {
	pm, err := patternmatcher.New(noextract)
	if err != nil {
		return errors.Wrap(err, "invalid noextract pattern")
	}

	if err := os.MkdirAll(srcdir, 0755); err != nil {
		return errors.Wrap(err, "failed to create source directory")
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.stageOne(ctx, src, srcdir, pm); err != nil {
			return errors.Wrapf(err, "failed to stage %s", src.Name)
		}
	}

	return nil
}

func (c *Cache) stageOne(ctx context.Context, src manifest.Source, srcdir string, pm *patternmatcher.PatternMatcher) error {
	path, err := filepath.Abs(c.Path(src))
	if err != nil {
		return err
	}
	target := filepath.Join(srcdir, src.Name)
	logger := log.G(ctx).WithField("source", src.Name)

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if fi.Mode().IsRegular() && archive.IsArchiveName(src.Name) {
		skip, err := pm.MatchesOrParentMatches(src.Name)
		if err != nil {
			return err
		}
		if !skip {
			logger.Debug("extracting source archive")
			// keep the archive itself reachable as well
			if err := link(path, target); err != nil {
				return err
			}
			return archive.UntarFile(path, srcdir, nil)
		}
	}

	if fi.IsDir() {
		logger.Debug("copying source directory")
		if err := removeAll(target); err != nil {
			return err
		}
		return copy.Copy(path, target, copy.Options{PreserveTimes: true})
	}

	return link(path, target)
}

// link replaces target with a symlink to path, falling back to a copy on
// filesystems without symlink support.
func link(path, target string) error {
	if err := removeAll(target); err != nil {
		return err
	}

	err := os.Symlink(path, target)
	if err == nil {
		return nil
	}
	if os.IsPermission(err) {
		return copy.Copy(path, target)
	}
	return err
}
