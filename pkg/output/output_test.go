package output

import (
	"bytes"
	"testing"

	"github.com/morikuni/aec"
	"github.com/stretchr/testify/assert"
)

type buffer struct {
	bytes.Buffer
	color bool
}

func (b *buffer) IsColorEnabled() bool { return b.color }

func TestPrettyln(t *testing.T) {
	plain := &buffer{}
	fancy := &buffer{color: true}

	text := Concat(Text{Plain: "    setup.py ... ", Fancy: "    setup.py ... "}, Styled("Passed", aec.GreenF))

	New(plain, fancy).Prettyln(text)
	New(plain, fancy).PrettyErrorln(text)

	assert.Equal(t, "    setup.py ... Passed\n", plain.String())
	assert.Equal(t, "    setup.py ... "+aec.GreenF.Apply("Passed")+"\n", fancy.String())
}

func TestStyledWithoutStyles(t *testing.T) {
	assert.Equal(t, Text{Plain: "x", Fancy: "x"}, Styled("x"))
}
