package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("test", &buf)

	logger.Debug("скрыто %d", 1)
	logger.Info("видно %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[INFO] [test] видно 2")

	logger.SetLevel(TRACE, TRACE)
	logger.Trace("трассировка")
	assert.Contains(t, buf.String(), "[TRACE] [test] трассировка")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	SetLogDirectory(dir)
	defer SetLogDirectory("")

	logger, err := NewLogger("filetest")
	require.NoError(t, err)
	logger.SetLevel(ERROR, DEBUG)
	logger.Debug("в файл")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "filetest_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [filetest] в файл")
}

func TestManagerCachesLoggers(t *testing.T) {
	lm := GetLoggerManager()

	a := lm.MustGetLogger("cache-a")
	b := lm.MustGetLogger("cache-a")
	assert.Same(t, a, b)
	assert.Contains(t, lm.Components(), "cache-a")

	require.NoError(t, lm.SetLogLevel("cache-a", WARN, WARN))
	assert.Error(t, lm.SetLogLevel("missing-component", WARN, WARN))
}

func TestManagerAppliesLevelsToLaterLoggers(t *testing.T) {
	lm := newLoggerManager()

	early, err := lm.GetLogger("early")
	require.NoError(t, err)
	lm.SetAllLevels(ERROR, ERROR)
	late, err := lm.GetLogger("late")
	require.NoError(t, err)

	assert.False(t, early.Enabled(WARN))
	assert.False(t, late.Enabled(WARN))
	assert.True(t, late.Enabled(ERROR))

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.Components())
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	assert.Contains(t, HexDump([]byte{0xde, 0xad}), "de ad")
}
