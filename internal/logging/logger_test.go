package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, enabled map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(zap.New(core), enabled)
	t.Cleanup(func() { SetRoot(nil, nil) })
	return logs
}

func TestCategoryLoggerNamesEntries(t *testing.T) {
	logs := observe(t, nil)

	QA("run %s started", "QA-1")
	BrowserDebug("navigating to %s", "http://x")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "qa", entries[0].LoggerName)
	assert.Equal(t, "run QA-1 started", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "browser", entries[1].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestDisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, map[string]bool{"chat": false, "qa": true})

	Chat("hidden")
	QA("shown")
	Review("unlisted categories stay on")

	assert.False(t, IsCategoryEnabled(CategoryChat))
	assert.True(t, IsCategoryEnabled(CategoryTicket))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t, nil)

	Get(CategoryQA).With("run_id", "abc").Warn("scenario %d failed", 3)

	entries := logs.FilterField(zap.String("run_id", "abc")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "scenario 3 failed", entries[0].Message)
}

func TestCallerIsTheCallSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetRoot(newRoot(core), nil)
	t.Cleanup(func() { SetRoot(nil, nil) })

	QA("via helper")
	Get(CategoryQA).Info("via logger")
	Get(CategoryQA).With("k", "v").Warn("via child")

	entries := logs.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.True(t, e.Caller.Defined, e.Message)
		assert.True(t, strings.HasSuffix(e.Caller.File, "logger_test.go"), "%s: caller %s", e.Message, e.Caller.File)
	}
}

func TestInitialize_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devhelper.log")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", File: path}))
	t.Cleanup(func() { SetRoot(nil, nil) })

	Boot("booted")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"booted"`)
	assert.Contains(t, string(data), `"logger":"boot"`)
}

func TestInitialize_RejectsBadInput(t *testing.T) {
	assert.Error(t, Initialize(Config{Level: "loud"}))
	assert.Error(t, Initialize(Config{Format: "xml"}))
}
