// Package output prints messages that have a plain and a colored form.
package output

import (
	"io"

	"github.com/morikuni/aec"
)

type Writer interface {
	io.Writer
	IsColorEnabled() bool
	WriteString(s string) (int, error)
}

type Output struct {
	out Writer
	err Writer
}

func New(out, err Writer) *Output {
	return &Output{
		out: out,
		err: err,
	}
}

type Text struct {
	Plain string
	Fancy string
}

// Styled returns a Text whose fancy form is s with styles applied.
func Styled(s string, styles ...aec.ANSI) Text {
	t := Text{Plain: s, Fancy: s}
	if len(styles) == 0 {
		return t
	}
	combined := styles[0]
	for _, next := range styles[1:] {
		combined = combined.With(next)
	}
	t.Fancy = combined.Apply(s)
	return t
}

// Concat joins texts, keeping plain and fancy forms apart.
func Concat(texts ...Text) Text {
	var t Text
	for _, part := range texts {
		t.Plain += part.Plain
		t.Fancy += part.Fancy
	}
	return t
}

func (o *Output) Prettyln(t Text) {
	pick(o.out, t, "\n")
}

func (o *Output) PrettyErrorln(t Text) {
	pick(o.err, t, "\n")
}

func pick(w Writer, t Text, suffix string) {
	if w.IsColorEnabled() {
		_, _ = w.WriteString(t.Fancy + suffix)
	} else {
		_, _ = w.WriteString(t.Plain + suffix)
	}
}
