// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/flux-cli/internal/config"
)

// -- Test Helper Functions --

// lockedBuffer is a goroutine-safe sink for captured log output.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// setup resets the global logger and returns a capture buffer.
func setup(t *testing.T) *lockedBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	return &lockedBuffer{}
}

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Run("console logger with colors", func(t *testing.T) {
		buf := setup(t)
		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "flux",
			Colors:      config.ColorConfig{Info: "blue"},
		}, buf)

		GetLogger().Named("driver").Info("Grid applied.")
		GetLogger().Warn("Falling back.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, "Grid applied.")
		assert.Contains(t, output, colorBlue+"INFO"+colorReset, "configured colour wins")
		assert.Contains(t, output, colorYellow+"WARN"+colorReset, "blank levels use the default colour")
		assert.Contains(t, output, "flux.driver.", "component names get a dot suffix")
	})

	t.Run("json logger", func(t *testing.T) {
		buf := setup(t)
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, buf)

		GetLogger().Warn("Source unavailable.", zap.String("source", "x.png"))
		GetLogger().Debug("filtered out")
		Sync()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1, "debug must be filtered at info level")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Source unavailable.", entry["msg"])
		assert.Equal(t, "x.png", entry["source"])
	})

	t.Run("writes to a rotating log file", func(t *testing.T) {
		buf := setup(t)
		path := filepath.Join(t.TempDir(), "flux.log")
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, buf)

		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`, "file sink is always JSON")
	})

	t.Run("only initializes once", func(t *testing.T) {
		buf := setup(t)
		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "First"}, buf)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "Second"}, buf)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.Contains(t, buf.String(), "First")
		assert.NotContains(t, buf.String(), "Second")
	})

	t.Run("samples repeated debug lines", func(t *testing.T) {
		buf := setup(t)
		Initialize(config.LoggerConfig{Level: "debug", Format: "json"}, buf)

		for i := 0; i < 200; i++ {
			GetLogger().Debug("Tick.")
		}
		Sync()
		assert.Equal(t, sampleFirst, strings.Count(buf.String(), `"msg":"Tick."`))
	})
}

func TestNewLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	buf := &lockedBuffer{}
	logger := NewLogger(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(buf))
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("returns the global logger after initialization", func(t *testing.T) {
		buf := setup(t)
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, buf)
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}
