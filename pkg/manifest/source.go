package manifest

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SkipChecksum disables verification for a single source.
const SkipChecksum = "SKIP"

// SourceKind tells where a source is read from.
type SourceKind int

const (
	SourceRemote SourceKind = iota
	SourceLocal
)

func (k SourceKind) String() string {
	if k == SourceLocal {
		return "local"
	}
	return "remote"
}

// Source is a parsed entry of the source array.
type Source struct {
	Index    int
	Entry    string
	Name     string
	Location string
	Kind     SourceKind
	MD5      string
	SHA256   string
}

// ParseSource parses "[name::]location". Remote locations are http(s)
// URLs; file:// URLs and plain paths are local.
func ParseSource(entry string) (Source, error) {
	src := Source{Entry: entry, Location: entry}

	if name, loc, ok := strings.Cut(entry, "::"); ok {
		src.Name = name
		src.Location = loc
	}

	if src.Location == "" {
		return Source{}, errors.New("location cannot be empty")
	}

	if scheme, _, ok := strings.Cut(src.Location, "://"); ok {
		u, err := url.Parse(src.Location)
		if err != nil {
			return Source{}, errors.Wrapf(err, "invalid source URL %q", src.Location)
		}

		switch scheme {
		case "http", "https":
			src.Kind = SourceRemote
			if u.Host == "" {
				return Source{}, errors.Errorf("source URL %q has no host", src.Location)
			}
			if src.Name == "" {
				src.Name = path.Base(u.Path)
			}
		case "file":
			src.Kind = SourceLocal
			src.Location = u.Path
			if src.Name == "" {
				src.Name = filepath.Base(u.Path)
			}
		default:
			return Source{}, errors.Errorf("unsupported source protocol %q", scheme)
		}
	} else {
		src.Kind = SourceLocal
		if src.Name == "" {
			src.Name = filepath.Base(src.Location)
		}
	}

	if src.Name == "" || src.Name == "." || src.Name == "/" || src.Name == ".." || strings.ContainsAny(src.Name, `/\`) {
		return Source{}, errors.Errorf("cannot derive a file name from %q", entry)
	}

	return src, nil
}

// LocalPath resolves a local source against startdir.
func (s Source) LocalPath(startdir string) string {
	if filepath.IsAbs(s.Location) {
		return s.Location
	}
	return filepath.Join(startdir, s.Location)
}
