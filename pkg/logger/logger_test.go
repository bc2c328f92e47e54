package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWritesFields(t *testing.T) {
	Init(EnvProduction, false)
	var buf bytes.Buffer
	SetOutput(&buf)

	Error("round failed", errors.New("boom"), "ceremony", "c1", "round", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "round failed", line["message"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "c1", line["ceremony"])
	assert.EqualValues(t, 2, line["round"])
}

func TestDebugSuppressedByDefault(t *testing.T) {
	Init(EnvProduction, false)
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden")
	assert.Zero(t, buf.Len())

	Warn("odd", "dangling")
	assert.Contains(t, buf.String(), "(missing)")
}

func TestWithCarriesFields(t *testing.T) {
	Init(EnvProduction, false)
	var buf bytes.Buffer
	SetOutput(&buf)

	l := With("ceremony", "c1", "session", "s1")
	l.Info().Msg("committed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "c1", line["ceremony"])
	assert.Equal(t, "s1", line["session"])
}
