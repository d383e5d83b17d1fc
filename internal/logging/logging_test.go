package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/leengari/gridops/internal/config"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, ParseLevel("debug"), slog.LevelDebug)
	assert.Equal(t, ParseLevel("warn"), slog.LevelWarn)
	assert.Equal(t, ParseLevel("error"), slog.LevelError)
	assert.Equal(t, ParseLevel(""), slog.LevelInfo)
}

func TestSetupLogger_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := SetupLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("applying operation", slog.String("operation", "text-transform"))

	var entry map[string]interface{}
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, entry["msg"], "applying operation")
	assert.Equal(t, entry["operation"], "text-transform")
}

func TestSetupLogger_TextConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := SetupLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("slow partition", slog.Int("partition", 3))
	assert.Assert(t, is.Contains(buf.String(), "partition=3"))
	assert.Assert(t, !bytes.Contains(buf.Bytes(), []byte("hidden")))
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	multi := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(multi).With(slog.String("trace_id", "t1"))

	logger.Info("partition persisted")
	assert.Assert(t, is.Contains(a.String(), "trace_id=t1"))
	assert.Equal(t, b.Len(), 0)
}
