package source

import (
	"os"
	"strings"

	"pkgmk/pkg/checksum"
	"pkgmk/pkg/manifest"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
)

// Check is the outcome of verifying one source against one checksum list.
type Check struct {
	Source    manifest.Source
	Algorithm checksum.Algorithm
	Skipped   bool
	Err       error
}

// Passed reports whether the check neither failed nor was skipped.
func (c Check) Passed() bool {
	return c.Err == nil && !c.Skipped
}

// VerifyError aggregates every failed check of a verification run.
type VerifyError struct {
	Failed []Check
}

func (e *VerifyError) Error() string {
	msgs := make([]string, 0, len(e.Failed))
	for _, c := range e.Failed {
		msgs = append(msgs, c.Err.Error())
	}
	return "one or more files did not pass the validity check:\n  " + strings.Join(msgs, "\n  ")
}

// Verify checks every source against each checksum list that is present in
// the manifest. All results are returned; the error is DataLoss when a sum
// did not match and NotFound when a source file is missing.
func (c *Cache) Verify(sources []manifest.Source, algos []checksum.Algorithm) ([]Check, error) {
	var (
		checks  []Check
		failed  []Check
		missing bool
	)

	for _, algo := range algos {
		for _, src := range sources {
			expected := src.MD5
			if algo == checksum.SHA256 {
				expected = src.SHA256
			}

			check := Check{Source: src, Algorithm: algo}
			check.Skipped, check.Err = checksum.VerifyFile(c.Path(src), src.Name, algo, expected)
			if check.Err != nil {
				if os.IsNotExist(errors.Cause(check.Err)) {
					missing = true
					check.Err = errors.Errorf("%s is missing", src.Name)
				}
				failed = append(failed, check)
			}
			checks = append(checks, check)
		}
	}

	if len(failed) == 0 {
		return checks, nil
	}

	err := &VerifyError{Failed: failed}
	if missing {
		return checks, errdefs.NotFound(err)
	}
	return checks, errdefs.DataLoss(err)
}

// Sums computes the checksum of every fetched source, in source order.
func (c *Cache) Sums(sources []manifest.Source, algo checksum.Algorithm) ([]string, error) {
	sums := make([]string, 0, len(sources))
	for _, src := range sources {
		path := c.Path(src)
		fi, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot compute %s for %s", algo, src.Name)
		}
		if fi.IsDir() {
			sums = append(sums, checksum.Skip)
			continue
		}

		sum, err := checksum.CalculateFile(path, algo)
		if err != nil {
			return nil, err
		}
		sums = append(sums, sum)
	}
	return sums, nil
}

// Algorithms lists the checksum algorithms whose lists m declares.
func Algorithms(m *manifest.Manifest) []checksum.Algorithm {
	var algos []checksum.Algorithm
	if len(m.Md5sums) > 0 {
		algos = append(algos, checksum.MD5)
	}
	if len(m.Sha256sums) > 0 {
		algos = append(algos, checksum.SHA256)
	}
	return algos
}
