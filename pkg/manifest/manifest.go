package manifest

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/errdefs"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// FileName is the name of the manifest inside a package directory.
const FileName = "pkgmk.json"

// Read reads the manifest from dir.
func Read(dir string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	switch {
	case os.IsNotExist(err):
		return nil, errdefs.NotFound(errors.Errorf("%s not found in %s", FileName, dir))
	case err != nil:
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a manifest. Unknown fields are rejected so typos in
// phase or checksum names don't go unnoticed.
func Decode(r io.Reader) (*Manifest, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			return nil, errdefs.InvalidParameter(errors.Errorf("%s has an invalid value for field %s, expected %s but got %s", FileName, typeError.Field, typeError.Type.String(), typeError.Value))
		}
		if errors.Is(err, io.EOF) {
			return nil, errdefs.InvalidParameter(errors.Errorf("%s is empty", FileName))
		}
		return nil, errdefs.InvalidParameter(errors.Wrapf(err, "error parsing %s", FileName))
	}

	return &m, nil
}

// Encode renders the manifest as indented JSON.
func Encode(m *Manifest, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)

	if err := encoder.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write atomically replaces the manifest in dir, keeping the indentation
// of the existing file.
func Write(m *Manifest, dir string) error {
	path := filepath.Join(dir, FileName)

	indent := "\t"
	if existing, err := os.ReadFile(path); err == nil {
		indent = DetectIndentation(existing)
	}

	data, err := Encode(m, indent)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", FileName)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReadAndValidate reads the manifest from dir and validates it.
func ReadAndValidate(dir string) (*Manifest, error) {
	m, err := Read(dir)
	if err != nil {
		return nil, err
	}

	v, err := NewValidator()
	if err != nil {
		return nil, err
	}

	if err := Validate(v, m); err != nil {
		return nil, errdefs.InvalidParameter(err)
	}

	return m, nil
}

// DetectIndentation scans the first few lines to find the indentation style.
//
// Defaults to a tab if it can't decide.
func DetectIndentation(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) == len(line) {
			continue
		}

		return line[:len(line)-len(trimmed)]
	}

	return "\t"
}
