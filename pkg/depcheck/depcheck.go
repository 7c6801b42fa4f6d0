// Package depcheck verifies that the dependencies of a manifest are
// installed on the build host.
package depcheck

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"pkgmk/pkg/log"
	"pkgmk/pkg/manifest"

	"github.com/cli/safeexec"
	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
)

// QueryFunc returns the installed version of each of names that is
// installed. Names that are not installed are absent from the result.
type QueryFunc func(ctx context.Context, names []string) (map[string]string, error)

// Unsatisfied is a dependency that is not installed or whose installed
// version doesn't satisfy its constraint.
type Unsatisfied struct {
	Dependency manifest.Dependency
	// Installed is empty when the package is not installed at all.
	Installed string
}

func (u Unsatisfied) String() string {
	if u.Installed == "" {
		return u.Dependency.String()
	}
	return u.Dependency.String() + " (installed: " + u.Installed + ")"
}

// MissingError lists every unsatisfied dependency.
type MissingError struct {
	Missing []Unsatisfied
}

func (e *MissingError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		names = append(names, m.String())
	}
	return "missing dependencies: " + strings.Join(names, ", ")
}

type Checker struct {
	query QueryFunc
}

// New returns a Checker backed by query.
func New(query QueryFunc) *Checker {
	return &Checker{query: query}
}

// NewPacman returns a Checker that queries the local pacman database. It
// returns a NotFound error when pacman is not installed.
func NewPacman() (*Checker, error) {
	path, err := safeexec.LookPath("pacman")
	if err != nil {
		return nil, errdefs.NotFound(errors.Wrap(err, "no dependency checker available"))
	}
	return New(pacmanQuery(path)), nil
}

// Check reports every spec that is not satisfied on this host. The error
// is a NotFound wrapping a *MissingError when something is missing.
func (c *Checker) Check(ctx context.Context, specs []string) error {
	if len(specs) == 0 {
		return nil
	}

	deps := make([]manifest.Dependency, 0, len(specs))
	seen := map[string]bool{}
	var names []string
	for _, spec := range specs {
		dep, err := manifest.ParseDependency(spec)
		if err != nil {
			return errdefs.InvalidParameter(err)
		}
		deps = append(deps, dep)
		if !seen[dep.Name] {
			seen[dep.Name] = true
			names = append(names, dep.Name)
		}
	}

	installed, err := c.query(ctx, names)
	if err != nil {
		return errors.Wrap(err, "failed to query installed packages")
	}

	var missing []Unsatisfied
	for _, dep := range deps {
		version, ok := installed[dep.Name]
		if !ok {
			missing = append(missing, Unsatisfied{Dependency: dep})
			continue
		}

		satisfied, err := dep.Satisfied(UpstreamVersion(version))
		if err != nil {
			// not every package version is semver; don't block on those
			log.G(ctx).WithField("dependency", dep.Name).Debugf("cannot compare version %s: %v", version, err)
			continue
		}
		if !satisfied {
			missing = append(missing, Unsatisfied{Dependency: dep, Installed: version})
		}
	}

	if len(missing) > 0 {
		return errdefs.NotFound(&MissingError{Missing: missing})
	}
	return nil
}

// UpstreamVersion strips the epoch and pkgrel from a full package version.
func UpstreamVersion(v string) string {
	if _, rest, ok := strings.Cut(v, ":"); ok {
		v = rest
	}
	if i := strings.LastIndex(v, "-"); i > 0 {
		v = v[:i]
	}
	return v
}

func pacmanQuery(path string) QueryFunc {
	return func(ctx context.Context, names []string) (map[string]string, error) {
		args := append([]string{"-Q", "--"}, names...)
		cmd := exec.CommandContext(ctx, path, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		out, err := cmd.Output()
		if err != nil {
			// pacman exits 1 when some of the names are not installed
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
				return nil, errors.Wrapf(err, "pacman -Q: %s", strings.TrimSpace(stderr.String()))
			}
		}

		return parseQueryOutput(out), nil
	}
}

// parseQueryOutput parses "name version" lines.
func parseQueryOutput(out []byte) map[string]string {
	installed := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		installed[fields[0]] = fields[1]
	}
	return installed
}
