package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/google/renameio/v2"
	"github.com/moby/sys/sequential"
	"github.com/pkg/errors"
)

// install copies spec.Src from $srcdir to spec.Dest under $pkgdir. The
// destination is replaced atomically and ends up with exactly the requested
// mode.
func (r *Runner) install(ctx context.Context, spec *manifest.InstallSpec) error {
	mode, err := spec.FileMode()
	if err != nil {
		return errdefs.InvalidParameter(err)
	}

	src, err := within(r.dirs.SrcDir, r.Expand(spec.Src, nil))
	if err != nil {
		return err
	}
	dest, err := within(r.dirs.PkgDir, r.Expand(spec.Dest, nil))
	if err != nil {
		return err
	}

	in, err := sequential.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.NotFound(errors.Wrapf(err, "cannot install %s", spec.Src))
		}
		return err
	}
	defer in.Close()

	if fi, err := in.Stat(); err != nil {
		return err
	} else if fi.IsDir() {
		return errdefs.InvalidParameter(errors.Errorf("cannot install %s: is a directory", spec.Src))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrap(err, "failed to create parent directories")
	}

	pf, err := renameio.NewPendingFile(dest)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, in); err != nil {
		return errors.Wrapf(err, "failed to write %s", dest)
	}
	// fchmod is not subject to the umask
	if err := pf.Chmod(mode); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, "failed to replace %s", dest)
	}

	log.G(ctx).Debugf("installed %s -> %s (%04o)", spec.Src, dest, mode)
	return nil
}

// within joins rel onto root and rejects results outside of root.
func within(root, rel string) (string, error) {
	p := filepath.Join(root, rel)
	r, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", errdefs.InvalidParameter(errors.Errorf("%q escapes %s", rel, root))
	}
	return p, nil
}
