package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgate/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("resource", "contacts").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"resource":"contacts"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "crmgate.log")
	l, err := New(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Debug().Msg("planned")
	assert.Contains(t, buf.String(), "planned")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"planned"`)
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
