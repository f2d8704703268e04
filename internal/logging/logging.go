// Package logging builds the zap logger shared by every component.
//
// Log lines go to one append-only file per calendar day and read
// "timestamp - LEVEL - message". Logger names are dropped and structured
// fields are folded into the message as "(key=value, ...)".
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

const (
	filePrefix = "login_my_target_site_"
	timeLayout = "2006-01-02 15:04:05,000"
)

// FileName returns the log file name for the given day.
func FileName(day time.Time) string {
	return filePrefix + day.Format("20060102") + ".log"
}

// EncoderConfig returns the console encoder settings used for every sink.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

// New opens today's log file under cfg.Dir and returns a logger writing to it.
// The returned close func syncs and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	return newAt(cfg, time.Now())
}

func newAt(cfg config.LogConfig, now time.Time) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encoder := zapcore.NewConsoleEncoder(EncoderConfig())
	cores := []zapcore.Core{
		&flatCore{Core: zapcore.NewCore(encoder, zapcore.AddSync(f), level)},
	}
	if cfg.Console {
		cores = append(cores, &flatCore{Core: zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.WarnLevel)})
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger, closeFn, nil
}

// flatCore folds structured fields, including those added with With, into
// the entry message before the wrapped core encodes it.
type flatCore struct {
	zapcore.Core
	fields []zapcore.Field
}

func (c *flatCore) With(fields []zapcore.Field) zapcore.Core {
	return &flatCore{Core: c.Core, fields: append(slices.Clone(c.fields), fields...)}
}

func (c *flatCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *flatCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message += renderFields(append(slices.Clone(c.fields), fields...))
	return c.Core.Write(ent, nil)
}

// renderFields formats fields as " (key=value, ...)" in the order given.
func renderFields(fields []zapcore.Field) string {
	if len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewMapObjectEncoder()
	var keys []string
	for _, f := range fields {
		f.AddTo(enc)
		if !slices.Contains(keys, f.Key) {
			keys = append(keys, f.Key)
		}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := enc.Fields[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
