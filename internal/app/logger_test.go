package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"})

	logger.Info("hidden")
	logger.Warn("rate feed slow", "location", "kyoto")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rate feed slow", entry["msg"])
	assert.Equal(t, "kyoto", entry["location"])
	assert.Equal(t, "staging", entry["env"])
	assert.Equal(t, "odyssey-quote", entry["service"])
}

func TestNewLoggerTextDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "development", LogLevel: "verbose"})
	logger.Info("quote issued")
	assert.Contains(t, buf.String(), "msg=\"quote issued\"")
	assert.Contains(t, buf.String(), "level=INFO")
}
