package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "INFO", Format: "text"}))
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = Configure(Config{Level: "INFO", Format: "text", Output: "stdout"})
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := reset(t)

	Debug("hidden %d", 1)
	Info("shown %d", 2)
	Warn("warned")
	Error("failed: %s", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[WARN] warned")
	assert.Contains(t, out, "[ERROR] failed: boom")

	buf.Reset()
	SetLevel("debug")
	Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
	assert.True(t, Enabled(LevelDebug))

	SetLevel("error")
	assert.False(t, Enabled(LevelWarn))
}

func TestJSONFormat(t *testing.T) {
	buf := reset(t)
	require.NoError(t, Configure(Config{Format: "json"}))
	SetOutput(buf)

	Info("hello %s", "world")

	var line struct {
		Time  string `json:"time"`
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "INFO", line.Level)
	assert.Equal(t, "hello world", line.Msg)
	assert.NotEmpty(t, line.Time)
}

func TestFileOutput(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Configure(Config{Output: path}))

	Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	reset(t)
	assert.Error(t, Configure(Config{Format: "xml"}))
}
