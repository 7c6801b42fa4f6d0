package manifest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SrcInfo renders the manifest in the .SRCINFO format.
func SrcInfo(m *Manifest) string {
	var b strings.Builder
	_ = WriteSrcInfo(&b, m)
	return b.String()
}

// WriteSrcInfo writes the .SRCINFO representation of m to w.
func WriteSrcInfo(w io.Writer, m *Manifest) error {
	sw := &srcInfoWriter{w: w}

	sw.line("", "pkgbase", m.Pkgname)
	sw.line("\t", "pkgdesc", m.Pkgdesc)
	sw.line("\t", "pkgver", m.Pkgver)
	sw.line("\t", "pkgrel", m.Pkgrel)
	if m.Epoch > 0 {
		sw.line("\t", "epoch", strconv.Itoa(m.Epoch))
	}
	sw.line("\t", "url", m.URL)
	sw.list("arch", m.Arch)
	sw.list("license", m.License)
	sw.list("makedepends", m.Makedepends)
	sw.list("depends", m.Depends)
	sw.list("noextract", m.Noextract)
	sw.list("source", m.Source)
	sw.list("md5sums", m.Md5sums)
	sw.list("sha256sums", m.Sha256sums)
	sw.raw("\n")
	sw.line("", "pkgname", m.Pkgname)

	return sw.err
}

type srcInfoWriter struct {
	w   io.Writer
	err error
}

func (s *srcInfoWriter) raw(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (s *srcInfoWriter) line(indent, key, value string) {
	if value == "" {
		return
	}
	s.raw(fmt.Sprintf("%s%s = %s\n", indent, key, value))
}

func (s *srcInfoWriter) list(key string, values []string) {
	for _, v := range values {
		s.line("\t", key, v)
	}
}
