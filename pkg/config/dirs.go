package config

import (
	"os"
	"path/filepath"

	"pkgmk/pkg/config/configfile"
)

// Environment variables overriding the configured directories.
const (
	EnvSrcDest  = "SRCDEST"
	EnvBuildDir = "BUILDDIR"
	EnvPkgDest  = "PKGDEST"
	EnvPackager = "PACKAGER"
)

// Dirs are the directories of a build rooted at the manifest directory.
type Dirs struct {
	// StartDir holds the manifest.
	StartDir string
	// SrcDest caches downloaded sources.
	SrcDest string
	// BuildDir holds src/ and pkg/.
	BuildDir string
	// PkgDest receives package archives.
	PkgDest string
}

// ResolveDirs applies environment overrides, then the configuration, then
// defaults to startdir. Relative paths are taken relative to startdir.
func ResolveDirs(cfg *configfile.ConfigFile, startdir string) Dirs {
	if cfg == nil {
		cfg = configfile.New("")
	}

	pick := func(env, configured string) string {
		v := os.Getenv(env)
		if v == "" {
			v = configured
		}
		if v == "" {
			return startdir
		}
		if !filepath.IsAbs(v) {
			v = filepath.Join(startdir, v)
		}
		return filepath.Clean(v)
	}

	return Dirs{
		StartDir: startdir,
		SrcDest:  pick(EnvSrcDest, cfg.SrcDest),
		BuildDir: pick(EnvBuildDir, cfg.BuildDir),
		PkgDest:  pick(EnvPkgDest, cfg.PkgDest),
	}
}

// SrcDir is $srcdir.
func (d Dirs) SrcDir() string {
	return filepath.Join(d.BuildDir, "src")
}

// PkgDir is $pkgdir for pkgname.
func (d Dirs) PkgDir(pkgname string) string {
	return filepath.Join(d.BuildDir, "pkg", pkgname)
}

// Packager returns PACKAGER from the environment or the configuration.
func Packager(cfg *configfile.ConfigFile) string {
	if v := os.Getenv(EnvPackager); v != "" {
		return v
	}
	if cfg != nil {
		return cfg.Packager
	}
	return ""
}
