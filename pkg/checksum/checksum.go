// Package checksum computes and verifies source file checksums.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Skip disables verification of a single file.
const Skip = "SKIP"

// Algorithm names a checksum array of the manifest.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
)

func (a Algorithm) String() string {
	return string(a)
}

// ListName returns the manifest field holding sums of this algorithm.
func (a Algorithm) ListName() string {
	return string(a) + "sums"
}

// MismatchError is returned when a file doesn't match its declared sum.
type MismatchError struct {
	Name      string
	Algorithm Algorithm
	Expected  string
	Actual    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s %s mismatch: expected %s, got %s", e.Name, e.Algorithm, e.Expected, e.Actual)
}

// Calculate computes the hex encoded sum of a reader's content.
func Calculate(r io.Reader, algo Algorithm) (string, error) {
	switch algo {
	case MD5:
		hasher := md5.New()
		if _, err := io.Copy(hasher, r); err != nil {
			return "", err
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	case SHA256:
		d, err := digest.SHA256.FromReader(r)
		if err != nil {
			return "", err
		}
		return d.Encoded(), nil
	default:
		return "", errors.Errorf("unsupported checksum algorithm %q", algo)
	}
}

// CalculateFile computes the sum of the file at path.
func CalculateFile(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := Calculate(f, algo)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return sum, nil
}

// VerifyFile checks the file at path against expected. An empty or SKIP
// expectation always passes and reports skipped.
func VerifyFile(path, name string, algo Algorithm, expected string) (skipped bool, err error) {
	if expected == "" || expected == Skip {
		return true, nil
	}

	actual, err := CalculateFile(path, algo)
	if err != nil {
		return false, err
	}

	if !strings.EqualFold(actual, expected) {
		return false, &MismatchError{Name: name, Algorithm: algo, Expected: expected, Actual: actual}
	}
	return false, nil
}
