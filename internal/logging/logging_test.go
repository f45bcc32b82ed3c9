package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)

	log.Debug("date parse failure", zap.String("field", "available_date"), zap.Int("line", 12))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "DEBUG", entry["severity"])
	require.Equal(t, "date parse failure", entry["message"])
	require.Equal(t, "available_date", entry["field"])
	require.EqualValues(t, 12, entry["line"])
}

func TestLevelFallback(t *testing.T) {
	for _, lvl := range []string{"", "chatty"} {
		var buf bytes.Buffer
		log, err := New(Options{Level: lvl, Output: &buf})
		require.NoError(t, err)
		log.Debug("hidden")
		log.Info("shown")
		require.NotContains(t, buf.String(), "hidden")
		require.Contains(t, buf.String(), "shown")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Format: "console", Output: &buf})
	require.NoError(t, err)
	log.Warn("row failed")
	require.True(t, strings.Contains(buf.String(), "WARN"), buf.String())
}

func TestUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	require.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	require.NotEqual(t, a, b)
	_, err := ulid.Parse(a)
	require.NoError(t, err)
}
