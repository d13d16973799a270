package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	levelMap = map[int]zapcore.Level{
		LevelDebug: zapcore.DebugLevel,
		LevelInfo:  zapcore.InfoLevel,
		LevelWarn:  zapcore.WarnLevel,
		LevelError: zapcore.ErrorLevel,
	}

	// Default to INFO in production, DEBUG in development
	minLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	base atomic.Pointer[zap.Logger]
)

// Logger is a component-scoped view over the shared zap core
type Logger struct {
	component string
}

func init() {
	if os.Getenv("ENV") == "development" {
		minLevel.SetLevel(zapcore.DebugLevel)
	}
	base.Store(build(os.Stdout))
}

func build(w io.Writer) *zap.Logger {
	var enc zapcore.Encoder
	if IsDevelopment() {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), minLevel))
}

// Init rebuilds the shared core. An empty level keeps the current one and no
// writers means stdout.
func Init(level string, writers ...io.Writer) error {
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		minLevel.SetLevel(lvl)
	}

	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}
	old := base.Swap(build(io.MultiWriter(writers...)))
	if old != nil {
		_ = old.Sync()
	}
	return nil
}

// Sync flushes buffered entries
func Sync() error {
	return base.Load().Sync()
}

// New creates a new logger for a specific component
func New(component string) *Logger {
	return &Logger{component: component}
}

// SetMinLevel allows changing the minimum log level at runtime
func SetMinLevel(level int) {
	if lvl, ok := levelMap[level]; ok {
		minLevel.SetLevel(lvl)
	}
}

// Zap exposes the component logger for callers that want structured fields
func (l *Logger) Zap() *zap.Logger {
	return base.Load().With(zap.String("component", l.component))
}

func (l *Logger) sugar() *zap.SugaredLogger {
	return l.Zap().Sugar()
}

// Debug logs debug information
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar().Debugf(format, args...)
}

// Info logs information messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar().Infof(format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar().Warnf(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar().Errorf(format, args...)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development" // Default to development
	}
	return env
}

// IsDevelopment returns true if the current environment is development
func IsDevelopment() bool {
	return GetAppEnv() == "development"
}
