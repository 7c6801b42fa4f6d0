package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	pkgNameRegex = regexp.MustCompile(`^[a-z0-9@._+-]+$`)
	pkgrelRegex  = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// IsValidPkgName checks the package name against the naming rules
// used by pacman.
func IsValidPkgName(name string) error {
	if name == "" {
		return fmt.Errorf("cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("must be at most 255 characters")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("cannot start with a hyphen or a dot")
	}
	if !pkgNameRegex.MatchString(name) {
		return fmt.Errorf("must consist of lowercase alphanumerics and any of @._+-")
	}
	return nil
}

// IsValidPkgver checks that the version can be embedded in a package
// file name.
func IsValidPkgver(v string) error {
	if v == "" {
		return fmt.Errorf("cannot be empty")
	}
	if strings.ContainsAny(v, ":/-") {
		return fmt.Errorf("cannot contain colons, forward slashes or hyphens")
	}
	for _, r := range v {
		if unicode.IsSpace(r) {
			return fmt.Errorf("cannot contain whitespace")
		}
	}
	return nil
}

// IsValidPkgrel checks the release number.
func IsValidPkgrel(rel string) error {
	if !pkgrelRegex.MatchString(rel) {
		return fmt.Errorf("must be of the form 'integer[.integer]'")
	}
	return nil
}

// IsValidURL checks if the string is an http(s) URL.
func IsValidURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

// IsSafeString checks for disallowed control and special unicode characters.
func IsSafeString(s string) error {
	for _, r := range s {
		if r == '\u2028' || r == '\u2029' || r == '\uFFFD' || r == '\uFFFC' || r == '\u3164' {
			return fmt.Errorf("contains invalid unicode characters")
		}
		if unicode.IsControl(r) && r != '\t' {
			return fmt.Errorf("contains invalid control characters")
		}
	}
	return nil
}

// ValidateArch checks the architecture list. "any" must stand alone.
func ValidateArch(arch []string) error {
	var errs ErrorList
	if len(arch) == 0 {
		errs.AddMsg("arch", "at least one architecture is required")
	}

	seen := make(map[string]bool, len(arch))
	for i, a := range arch {
		field := fmt.Sprintf("arch[%d]", i)
		if a == "" || strings.ContainsFunc(a, unicode.IsSpace) {
			errs.AddMsg(field, "must be a non-empty word")
		}
		if a == "any" && len(arch) > 1 {
			errs.AddMsg(field, "'any' cannot be combined with other architectures")
		}
		if seen[a] {
			errs.AddMsg("arch", fmt.Sprintf("duplicate architecture '%s'", a))
		}
		seen[a] = true
	}
	return errs.Err()
}

// ValidateListLength checks that a checksum list is positionally
// matched with the source list.
func ValidateListLength(field string, values []string, sources int) error {
	if values == nil {
		return nil
	}
	if len(values) != sources {
		return ErrorList{{
			Field:   field,
			Message: fmt.Sprintf("has %d entries but source has %d", len(values), sources),
		}}
	}
	return nil
}
