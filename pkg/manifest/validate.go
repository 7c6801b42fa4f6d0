package manifest

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgvalidator "pkgmk/pkg/validator"

	"github.com/go-playground/validator/v10"
)

var (
	md5Regex    = regexp.MustCompile(`^[a-f0-9]{32}$`)
	sha256Regex = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

// NewValidator creates a new validator instance with the pkgmk rules
// registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"pkgmk_pkgname":  fieldRule(pkgvalidator.IsValidPkgName),
		"pkgmk_pkgver":   fieldRule(pkgvalidator.IsValidPkgver),
		"pkgmk_pkgrel":   fieldRule(pkgvalidator.IsValidPkgrel),
		"pkgmk_http_url": fieldRule(pkgvalidator.IsValidURL),
		"pkgmk_safe":     fieldRule(pkgvalidator.IsSafeString),
		"pkgmk_md5":      checksumRule(md5Regex),
		"pkgmk_sha256":   checksumRule(sha256Regex),
		"pkgmk_filemode": validateFileMode,
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, err
		}
	}

	v.RegisterStructValidation(validateStep, Step{})

	return v, nil
}

func fieldRule(check func(string) error) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return check(fl.Field().String()) == nil
	}
}

func checksumRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == SkipChecksum || re.MatchString(v)
	}
}

func validateFileMode(fl validator.FieldLevel) bool {
	spec := InstallSpec{Mode: fl.Field().String()}
	_, err := spec.FileMode()
	return err == nil
}

// validateStep ensures exactly one action per step.
func validateStep(sl validator.StructLevel) {
	step := sl.Current().Interface().(Step)

	hasRun := strings.TrimSpace(step.Run) != ""
	hasInstall := step.Install != nil

	if hasRun == hasInstall {
		sl.ReportError(step.Run, "run", "Run", "pkgmk_step", "")
	}
	if hasInstall && (step.Dir != "" || len(step.Env) > 0) {
		sl.ReportError(step.Dir, "dir", "Dir", "pkgmk_install_opts", "")
	}
}

// Validate checks the manifest fields and the integrity of the source
// and checksum arrays. All problems are reported together.
func Validate(v *validator.Validate, m *Manifest) error {
	var errs pkgvalidator.ErrorList

	if err := v.Struct(m); err != nil {
		errs.Merge("manifest", handleValidatorError(err))
	}

	errs.Merge("arch", pkgvalidator.ValidateArch(m.Arch))

	if len(m.Source) > 0 && m.Md5sums == nil {
		errs.AddMsg("md5sums", fmt.Sprintf("is required when source is set (%d entries)", len(m.Source)))
	}
	errs.Merge("md5sums", pkgvalidator.ValidateListLength("md5sums", m.Md5sums, len(m.Source)))
	errs.Merge("sha256sums", pkgvalidator.ValidateListLength("sha256sums", m.Sha256sums, len(m.Source)))

	names := make(map[string]int, len(m.Source))
	for i, entry := range m.Source {
		field := fmt.Sprintf("source[%d]", i)
		src, err := ParseSource(entry)
		if err != nil {
			errs.Add(field, err)
			continue
		}
		if prev, ok := names[src.Name]; ok {
			errs.AddMsg(field, fmt.Sprintf("file name %q is already used by source[%d]", src.Name, prev))
			continue
		}
		names[src.Name] = i
	}

	for field, deps := range map[string][]string{"depends": m.Depends, "makedepends": m.Makedepends} {
		for i, spec := range deps {
			if _, err := ParseDependency(spec); err != nil {
				errs.Add(fmt.Sprintf("%s[%d]", field, i), err)
			}
		}
	}

	sortErrors(errs)
	return errs.Err()
}
