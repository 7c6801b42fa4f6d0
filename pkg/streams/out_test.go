package streams

import (
	"bytes"
	"testing"

	"github.com/morikuni/aec"
	"github.com/stretchr/testify/assert"
)

func TestStyledOutPlainWhenColorDisabled(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewOut(&buf)
	assert.False(t, out.IsColorEnabled())

	out.With(aec.GreenF).Println("done")
	assert.Equal(t, "done\n", buf.String())
}

func TestStyledOutColored(t *testing.T) {
	var buf bytes.Buffer
	out := NewOut(&buf)
	out.SetColorEnabled(true)

	out.With(aec.GreenF).Print("ok")
	assert.Equal(t, aec.GreenF.Apply("ok"), buf.String())
}

func TestStepLines(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewOut(&buf)
	out.Step("Starting %s()...", "build")
	out.SubStep("Found %s", "setup.py")
	out.Warn("Skipping %s", "dependency checks")

	assert.Equal(t, "==> Starting build()...\n  -> Found setup.py\n==> WARNING: Skipping dependency checks\n", buf.String())
}

func TestForceColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.True(t, hasColors(false))

	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	assert.False(t, hasColors(true))
}
