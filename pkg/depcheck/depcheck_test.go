package depcheck

import (
	"context"
	"testing"

	"github.com/docker/docker/errdefs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticQuery(installed map[string]string) QueryFunc {
	return func(_ context.Context, names []string) (map[string]string, error) {
		out := map[string]string{}
		for _, n := range names {
			if v, ok := installed[n]; ok {
				out[n] = v
			}
		}
		return out, nil
	}
}

func TestCheckAllInstalled(t *testing.T) {
	c := New(staticQuery(map[string]string{
		"python-pyqt6":       "6.7.1-1",
		"python-jack-client": "0.5.4-3",
		"jack_delay":         "0.4.2-2",
	}))

	require.NoError(t, c.Check(context.Background(), []string{"python-pyqt6>=6.0", "python-jack-client", "jack_delay"}))
	require.NoError(t, c.Check(context.Background(), nil))
}

func TestCheckReportsMissingAndOutdated(t *testing.T) {
	c := New(staticQuery(map[string]string{
		"python-pyqt6": "1:5.15.10-2",
	}))

	err := c.Check(context.Background(), []string{"python-pyqt6>=6.0", "jack_delay"})
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))

	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	require.Len(t, missing.Missing, 2)
	assert.Equal(t, "python-pyqt6>=6.0 (installed: 1:5.15.10-2)", missing.Missing[0].String())
	assert.Equal(t, "jack_delay", missing.Missing[1].String())
}

func TestCheckUncomparableVersion(t *testing.T) {
	c := New(staticQuery(map[string]string{"jack_delay": "r42.g1a2b3c-1"}))
	assert.NoError(t, c.Check(context.Background(), []string{"jack_delay>=0.4"}))
}

func TestCheckInvalidSpec(t *testing.T) {
	c := New(staticQuery(nil))
	err := c.Check(context.Background(), []string{"-bad"})
	assert.True(t, errdefs.IsInvalidParameter(err))
}

func TestUpstreamVersion(t *testing.T) {
	assert.Equal(t, "6.7.1", UpstreamVersion("6.7.1-1"))
	assert.Equal(t, "2.0", UpstreamVersion("1:2.0-3"))
	assert.Equal(t, "0.4", UpstreamVersion("0.4"))
}

func TestParseQueryOutput(t *testing.T) {
	got := parseQueryOutput([]byte("python-pyqt6 6.7.1-1\njack_delay 0.4.2-2\n\ngarbage\n"))
	assert.Equal(t, map[string]string{"python-pyqt6": "6.7.1-1", "jack_delay": "0.4.2-2"}, got)
}
