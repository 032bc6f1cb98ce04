package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Initialize(Config{Level: level, Format: "json", Output: buf})
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	return buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInfo_WritesFieldsAndCaller(t *testing.T) {
	buf := captureJSON(t, "info")

	Info("outfit created", map[string]interface{}{"outfit_id": "abc"})

	entry := lastLine(t, buf)
	assert.Equal(t, "outfit created", entry["message"])
	assert.Equal(t, "abc", entry["outfit_id"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestError_IncludesError(t *testing.T) {
	buf := captureJSON(t, "info")

	Error("query failed", errors.New("connection reset"))

	entry := lastLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "connection reset", entry["error"])
}

func TestDebug_FilteredAtInfoLevel(t *testing.T) {
	buf := captureJSON(t, "info")

	Debug("noisy detail")

	assert.Empty(t, buf.String())
}

func TestWithContext_CarriesFields(t *testing.T) {
	buf := captureJSON(t, "debug")

	l := WithContext(map[string]interface{}{"request_id": "req-1"})
	l.Warn("slow request", nil)

	entry := lastLine(t, buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "warn", entry["level"])
}
