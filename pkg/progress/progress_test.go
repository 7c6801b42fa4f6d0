package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWithProgressDisabled(t *testing.T) {
	var out bytes.Buffer
	p := &Progress{}

	called := false
	err := p.RunWithProgress("Retrieving sources...", func() error {
		called = true
		return errors.New("boom")
	}, &out)

	assert.True(t, called)
	assert.EqualError(t, err, "boom")
	assert.Empty(t, out.String())
}

func TestStartStopEnabled(t *testing.T) {
	var out bytes.Buffer
	p := &Progress{ProgressIndicatorEnabled: true}

	p.StartProgressIndicatorWithLabel("fetching 5 source(s)", &out)
	p.StartProgressIndicatorWithLabel("fetching 4 source(s)", &out)
	p.StopProgressIndicator()
	p.StopProgressIndicator()
}
