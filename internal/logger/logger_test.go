package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] [logger_test.go:")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "[ERROR]")

	buf.Reset()
	l.SetLevel(DEBUG)
	assert.Equal(t, DEBUG, l.GetLevel())
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("dropped")
	assert.Equal(t, OFF, l.GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, OFF, ParseLevel("none"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestInitLogger_File(t *testing.T) {
	dir := t.TempDir()
	l, err := InitLogger(&Config{
		Level:      INFO,
		EnableFile: true,
		LogDir:     dir,
		LogFile:    "test.log",
	})
	require.NoError(t, err)
	l.Info("hello %s", "file")
	require.NoError(t, Close(l))

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Same(t, l, GetLogger())
}

func TestInitLogger_NilConfigUsesDefault(t *testing.T) {
	l, err := InitLogger(nil)
	require.NoError(t, err)
	defer Close(l)
	assert.Equal(t, INFO, l.GetLevel())
}
