package streams

import (
	"fmt"
	"io"
	"os"

	"github.com/moby/term"
	"github.com/morikuni/aec"
)

// Out is an output stream to write normal program output. It implements
// an [io.Writer], with additional utilities for detecting whether a terminal
// is connected and whether colored output should be produced.
type Out struct {
	commonStream
	out         io.Writer
	enableColor bool
}

func (o *Out) Write(p []byte) (int, error) {
	return o.out.Write(p)
}

// WriteString implements [io.StringWriter].
func (o *Out) WriteString(s string) (int, error) {
	return io.WriteString(o.out, s)
}

func (o *Out) IsColorEnabled() bool {
	return o.enableColor
}

// SetColorEnabled overrides color detection.
func (o *Out) SetColorEnabled(enabled bool) {
	o.enableColor = enabled
}

// NewOut returns a new [Out] from an [io.Writer].
func NewOut(out io.Writer) *Out {
	o := &Out{out: out}
	o.fd, o.isTerminal = term.GetFdInfo(out)
	o.enableColor = hasColors(o.isTerminal)
	return o
}

func hasColors(isTerminal bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	force := os.Getenv("CLICOLOR_FORCE")
	if force != "" && force != "0" {
		return true
	}

	if os.Getenv("CLICOLOR") == "0" {
		return false
	}

	return isTerminal
}

func (o *Out) With(styles ...aec.ANSI) *StyledOut {
	return &StyledOut{
		parent: o,
		styles: styles,
	}
}

// Step prints a makepkg style "==> msg" line.
func (o *Out) Step(format string, a ...any) {
	o.With(aec.GreenF, aec.Bold).Print("==> ")
	o.With(aec.Bold).Printf(format+"\n", a...)
}

// SubStep prints an indented "  -> msg" line.
func (o *Out) SubStep(format string, a ...any) {
	o.With(aec.BlueF, aec.Bold).Print("  -> ")
	fmt.Fprintf(o.out, format+"\n", a...)
}

// Warn prints a "==> WARNING: msg" line.
func (o *Out) Warn(format string, a ...any) {
	o.With(aec.YellowF, aec.Bold).Print("==> WARNING: ")
	o.With(aec.Bold).Printf(format+"\n", a...)
}

type StyledOut struct {
	parent *Out
	styles []aec.ANSI
}

func (s *StyledOut) apply(msg string) string {
	if len(s.styles) == 0 {
		return msg
	}

	combined := s.styles[0]
	for _, next := range s.styles[1:] {
		combined = combined.With(next)
	}

	return combined.Apply(msg)
}

func (s *StyledOut) Println(a ...any) {
	msg := fmt.Sprint(a...)

	if s.parent.enableColor {
		msg = s.apply(msg)
	}

	fmt.Fprintln(s.parent.out, msg)
}

func (s *StyledOut) Print(a ...any) {
	msg := fmt.Sprint(a...)

	if s.parent.enableColor {
		msg = s.apply(msg)
	}

	fmt.Fprint(s.parent.out, msg)
}

func (s *StyledOut) Printf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)

	if s.parent.enableColor {
		msg = s.apply(msg)
	}

	fmt.Fprint(s.parent.out, msg)
}
