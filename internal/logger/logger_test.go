package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("stressor")

	log.Info("scenario folded",
		String("scenario", "site_1.nc"),
		Float64("probability", 0.123456),
		Int("index", 2))

	out := buf.String()
	assert.Contains(t, out, "module=stressor")
	assert.Contains(t, out, "scenario=site_1.nc")
	assert.Contains(t, out, "probability=0.123")
	assert.Contains(t, out, "index=2")
	assert.NotContains(t, out, "time=")
}

func TestSubModuleAndWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("grid")
	child := base.Module("regrid").With(String("axis", "x"))

	child.Warn("degenerate spacing")
	base.Info("parent line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=grid.regrid")
	assert.Contains(t, lines[0], "axis=x")
	assert.NotContains(t, lines[1], "axis=x")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC).Module("acoustic")

	log.Debug("hidden")
	log.Info("hidden too")
	log.Log(LogLevelError, "shown", Error(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "error=boom")
}

func TestTraceLevelRendering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, time.UTC).Module("grid")
	log.Trace("kdtree built", Int("points", 16))

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC).Module("pipeline")

	ctx := WithTraceID(context.Background(), "run-42")
	log.WithContext(ctx).Info("started")
	log.WithContext(context.Background()).Info("no trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=run-42")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
	})
	require.NoError(t, err)

	cl.Module("output").Info("raster written", String("key", "paracousti_stressor"), Duration("elapsed", 1500*time.Millisecond))
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close(), "close must be idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "raster written", record["msg"])
	assert.Equal(t, "output", record["module"])
	assert.Equal(t, "paracousti_stressor", record["key"])
	assert.Equal(t, "1.5s", record["elapsed"])
}

func TestNewCentralLoggerRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, lvl := range []string{"trace", "debug", "info", "warn", "warning", "ERROR"} {
		assert.True(t, ValidLevel(lvl), lvl)
	}
	assert.False(t, ValidLevel("loud"))
}
