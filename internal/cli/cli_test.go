package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"-workflow", "etl",
		"-port", "9000",
		"-backend-url", "http://localhost:8793",
		"-poll-interval", "15s",
		"-log-format", "text",
		"-log-level", "debug",
		"workflows/",
	}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "workflows/", cfg.ConfigPath)
	assert.Equal(t, "etl", cfg.WorkflowID)
	assert.Equal(t, 9000, cfg.ListenPort)
	assert.Equal(t, "http://localhost:8793", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParse_ConfigFlagWinsOverPositional(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"-config", "a.hcl", "b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.ConfigPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"log format", []string{"-log-format", "xml", "a.hcl"}, "invalid log-format"},
		{"log level", []string{"-log-level", "loud", "a.hcl"}, "invalid log-level"},
		{"poll interval", []string{"-poll-interval", "-5s", "a.hcl"}, "invalid poll-interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
