package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesJSONWithService(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Service: "account-service", Output: &buf})
	log.Info().Str("username", "alice").Msg("user signed up")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "account-service", entry["service"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "error", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l := Get()
	l.Error().Msg("boom")
	l.Info().Msg("dropped")

	assert.Contains(t, first.String(), "boom")
	assert.NotContains(t, first.String(), "dropped")
	assert.Empty(t, second.String())
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	assert.Panics(t, func() { Get() })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
