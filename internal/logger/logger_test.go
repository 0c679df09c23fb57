package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: "info", Output: &buf}), "scanner")

	log.Debug().Msg("hidden")
	log.Info().Str("rule", "javascript").Msg("violation")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "docviewer", entry["service"])
	assert.Equal(t, "scanner", entry["component"])
	assert.Equal(t, "javascript", entry["rule"])
	assert.Equal(t, "violation", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}
