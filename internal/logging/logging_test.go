package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joshuapare/cbtkit/pkg/types"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"Text Info", "text", "info"},
		{"Console Warn", "console", "warn"},
		{"Defaults", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, cleanup, err := NewLogger(Config{Format: tt.format, Level: tt.level, Output: zapcore.AddSync(&buf)})
			require.NoError(t, err)
			defer cleanup()
			logger.Error("heartbeat", zap.String("disk", "scsi0:0"))
			require.NoError(t, logger.Sync())
			assert.Contains(t, buf.String(), "heartbeat")
		})
	}
}

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := NewLogger(Config{Format: "json", Level: "info", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("sync cycle complete", zap.Uint64("bytes", 4096))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug must be filtered at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sync cycle complete", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(4096), entry["bytes"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cbtctl.log")
	logger, cleanup, err := NewLogger(Config{Format: "json", File: path})
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, logger.Sync())
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, _, err := NewLogger(Config{Level: "loud"})
	assert.True(t, types.IsKind(err, types.ErrKindConfig))

	_, _, err = NewLogger(Config{Format: "xml"})
	assert.True(t, types.IsKind(err, types.ErrKindConfig))
}
