package logging

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "login_my_target_site_20260307.log", FileName(day))
}

func TestNew_WritesFormattedLines(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.Local)

	logger, closeFn, err := newAt(config.LogConfig{Dir: dir, Level: "info"}, now)
	require.NoError(t, err)

	logger.Info("Starting login process")
	logger.Warn("No popup found")
	logger.Debug("not written")
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, FileName(now)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	pattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3} - (INFO|WARN) - .+$`)
	for _, line := range lines {
		assert.Regexp(t, pattern, line)
	}
	assert.True(t, strings.HasSuffix(lines[0], " - INFO - Starting login process"))
	assert.True(t, strings.HasSuffix(lines[1], " - WARN - No popup found"))
}

func TestNew_NamedLoggersKeepLineFormat(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.Local)

	logger, closeFn, err := newAt(config.LogConfig{Dir: dir, Level: "info"}, now)
	require.NoError(t, err)

	runLogger := logger.Named("auth").Named("login").With(zap.String("run", "abc"))
	runLogger.Info("Waiting for page load")
	runLogger.Warn("No popup found", zap.Error(errors.New("timeout")))
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, FileName(now)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], " - INFO - Waiting for page load (run=abc)"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], " - WARN - No popup found (run=abc, error=timeout)"), lines[1])
	assert.NotContains(t, string(data), "auth.login")
	assert.NotContains(t, string(data), "{")
}

func TestRenderFields(t *testing.T) {
	assert.Equal(t, "", renderFields(nil))
	assert.Equal(t, " (url=https://a.test, took=2s)",
		renderFields([]zap.Field{zap.String("url", "https://a.test"), zap.Duration("took", 2*time.Second)}))
}

func TestNew_Appends(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	cfg := config.LogConfig{Dir: dir, Level: "info"}

	for i := 0; i < 2; i++ {
		logger, closeFn, err := newAt(cfg, now)
		require.NoError(t, err)
		logger.Info("run")
		closeFn()
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName(now)))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), " - INFO - run"))
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Dir: t.TempDir(), Level: "loud"})
	assert.Error(t, err)
}
