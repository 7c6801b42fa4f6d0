package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultInstallMode is used by install steps that don't set a mode.
const DefaultInstallMode os.FileMode = 0o644

// Phase names a lifecycle phase of the manifest.
type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseBuild   Phase = "build"
	PhaseCheck   Phase = "check"
	PhasePackage Phase = "package"
)

// Manifest struct to define the pkgmk.json schema
type Manifest struct {
	Pkgname     string   `json:"pkgname" validate:"required,pkgmk_pkgname"`
	Pkgver      string   `json:"pkgver" validate:"required,pkgmk_pkgver"`
	Pkgrel      string   `json:"pkgrel" validate:"required,pkgmk_pkgrel"`
	Epoch       int      `json:"epoch,omitempty" validate:"gte=0"`
	Pkgdesc     string   `json:"pkgdesc,omitempty" validate:"omitempty,max=512,pkgmk_safe"`
	Arch        []string `json:"arch"`
	URL         string   `json:"url,omitempty" validate:"omitempty,pkgmk_http_url"`
	License     []string `json:"license,omitempty" validate:"omitempty,dive,required,pkgmk_safe"`
	Depends     []string `json:"depends,omitempty" validate:"omitempty,dive,required"`
	Makedepends []string `json:"makedepends,omitempty" validate:"omitempty,dive,required"`
	Source      []string `json:"source,omitempty" validate:"omitempty,dive,required"`
	Noextract   []string `json:"noextract,omitempty" validate:"omitempty,dive,required"`
	Md5sums     []string `json:"md5sums,omitempty" validate:"omitempty,dive,pkgmk_md5"`
	Sha256sums  []string `json:"sha256sums,omitempty" validate:"omitempty,dive,pkgmk_sha256"`
	Prepare     []Step   `json:"prepare,omitempty" validate:"omitempty,dive"`
	Build       []Step   `json:"build,omitempty" validate:"omitempty,dive"`
	Check       []Step   `json:"check,omitempty" validate:"omitempty,dive"`
	Package     []Step   `json:"package,omitempty" validate:"omitempty,dive"`
}

// Step is a single action of a lifecycle phase. Exactly one of Run and
// Install is set.
type Step struct {
	Run     string            `json:"run,omitempty"`
	Dir     string            `json:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Install *InstallSpec      `json:"install,omitempty"`
}

// InstallSpec copies Src (relative to $srcdir) to Dest (relative to
// $pkgdir) with Mode.
type InstallSpec struct {
	Src  string `json:"src" validate:"required"`
	Dest string `json:"dest" validate:"required"`
	Mode string `json:"mode,omitempty" validate:"omitempty,pkgmk_filemode"`
}

// FileMode parses Mode as an octal permission string.
func (i *InstallSpec) FileMode() (os.FileMode, error) {
	if i.Mode == "" {
		return DefaultInstallMode, nil
	}
	m, err := strconv.ParseUint(i.Mode, 8, 32)
	if err != nil || m > 0o7777 {
		return 0, fmt.Errorf("invalid file mode %q", i.Mode)
	}
	return os.FileMode(m), nil
}

func (s Step) String() string {
	if s.Install != nil {
		mode := s.Install.Mode
		if mode == "" {
			mode = fmt.Sprintf("%04o", DefaultInstallMode)
		}
		return fmt.Sprintf("install -m%s %s %s", mode, s.Install.Src, s.Install.Dest)
	}
	return s.Run
}

// Steps returns the steps of phase p.
func (m *Manifest) Steps(p Phase) []Step {
	switch p {
	case PhasePrepare:
		return m.Prepare
	case PhaseBuild:
		return m.Build
	case PhaseCheck:
		return m.Check
	case PhasePackage:
		return m.Package
	default:
		return nil
	}
}

// FullVersion returns [epoch:]pkgver-pkgrel.
func (m *Manifest) FullVersion() string {
	v := m.Pkgver + "-" + m.Pkgrel
	if m.Epoch > 0 {
		v = strconv.Itoa(m.Epoch) + ":" + v
	}
	return v
}

// ArchiveName returns the file name of the package archive built for arch.
func (m *Manifest) ArchiveName(arch string) string {
	return strings.Join([]string{m.Pkgname, m.FullVersion(), arch}, "-") + ".pkg.tar.zst"
}

// Sources parses every source entry.
func (m *Manifest) Sources() ([]Source, error) {
	sources := make([]Source, 0, len(m.Source))
	for i, entry := range m.Source {
		src, err := ParseSource(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "source[%d]", i)
		}
		src.Index = i
		if i < len(m.Md5sums) {
			src.MD5 = m.Md5sums[i]
		}
		if i < len(m.Sha256sums) {
			src.SHA256 = m.Sha256sums[i]
		}
		sources = append(sources, src)
	}
	return sources, nil
}
