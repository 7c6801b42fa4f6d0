package manifest

import (
	"strings"

	"pkgmk/pkg/validator"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// comparison operators in match order
var depOperators = []string{">=", "<=", "=", ">", "<"}

// Dependency is a parsed "name[<op>version]" specification.
type Dependency struct {
	Name       string
	Op         string
	Version    string
	Constraint *semver.Constraints
}

// ParseDependency parses a dependency spec such as "python>=3.10".
func ParseDependency(spec string) (Dependency, error) {
	idx := strings.IndexAny(spec, "<>=")
	if idx < 0 {
		if err := validator.IsValidPkgName(spec); err != nil {
			return Dependency{}, errors.Wrapf(err, "invalid dependency name %q", spec)
		}
		return Dependency{Name: spec}, nil
	}

	dep := Dependency{Name: spec[:idx]}
	if err := validator.IsValidPkgName(dep.Name); err != nil {
		return Dependency{}, errors.Wrapf(err, "invalid dependency name %q", dep.Name)
	}

	rest := spec[idx:]
	for _, op := range depOperators {
		if strings.HasPrefix(rest, op) {
			dep.Op = op
			dep.Version = rest[len(op):]
			break
		}
	}

	if dep.Version == "" {
		return Dependency{}, errors.Errorf("dependency %q is missing a version after %q", spec, dep.Op)
	}

	if _, err := semver.NewVersion(dep.Version); err != nil {
		return Dependency{}, errors.Wrapf(err, "dependency %q has an invalid version", spec)
	}

	c, err := semver.NewConstraint(dep.Op + " " + dep.Version)
	if err != nil {
		return Dependency{}, errors.Wrapf(err, "dependency %q has an invalid constraint", spec)
	}
	dep.Constraint = c

	return dep, nil
}

// Satisfied reports whether version satisfies the dependency constraint.
// Unversioned dependencies accept any version.
func (d Dependency) Satisfied(version string) (bool, error) {
	if d.Constraint == nil {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, errors.Wrapf(err, "invalid version %q", version)
	}
	return d.Constraint.Check(v), nil
}

func (d Dependency) String() string {
	return d.Name + d.Op + d.Version
}
