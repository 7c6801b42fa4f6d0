package manifest

import (
	"errors"
	"sort"
	"strings"

	pkgvalidator "pkgmk/pkg/validator"

	"github.com/go-playground/validator/v10"
)

// Description of the rules behind each validation tag.
var tagDescriptions = map[string]string{
	"required":           "is required",
	"gte":                "must not be negative",
	"max":                "is too long",
	"pkgmk_pkgname":      "must contain only lowercase alphanumerics and any of @._+-, and cannot start with a hyphen or dot",
	"pkgmk_pkgver":       "cannot contain colons, forward slashes, hyphens or whitespace",
	"pkgmk_pkgrel":       "must be of the form 'integer[.integer]'",
	"pkgmk_http_url":     "must be a valid http(s) URL",
	"pkgmk_safe":         "contains invalid characters",
	"pkgmk_md5":          "must be a 32 character hex MD5 sum or SKIP",
	"pkgmk_sha256":       "must be a 64 character hex SHA-256 sum or SKIP",
	"pkgmk_filemode":     "must be an octal file mode such as 0644",
	"pkgmk_step":         "a step must set exactly one of 'run' or 'install'",
	"pkgmk_install_opts": "'dir' and 'env' cannot be used with 'install'",
}

// handleValidatorError turns validator errors into an ErrorList keyed by
// the JSON path of the failing field.
func handleValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var list pkgvalidator.ErrorList
	for _, fe := range verrs {
		msg, ok := tagDescriptions[fe.Tag()]
		if !ok {
			msg = "failed the '" + fe.Tag() + "' rule"
		}
		list.AddMsg(fieldPath(fe.Namespace()), msg)
	}

	return list
}

// fieldPath strips the root struct name: "Manifest.build[0].run" -> "build[0].run".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func sortErrors(errs pkgvalidator.ErrorList) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Field < errs[j].Field
	})
}
