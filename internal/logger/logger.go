// Package logger provides structured, levelled logging for the translator.
// Output goes to stderr by default and optionally to a size-rotated file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	// With returns a logger that prepends fields to every entry.
	With(fields ...Field) Logger
	SetLevel(level Level)
	Close() error
}

// Config holds the configuration for the logger
type Config struct {
	// FilePath enables file output when non-empty.
	FilePath string
	// MaxFileSize is the size in bytes that triggers rotation.
	MaxFileSize int64
	MaxBackups  int
	Level       Level
	// Console receives every entry as well; nil disables console output.
	Console io.Writer
}

// DefaultConfig returns a console-only configuration at info level.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  3,
		Level:       LevelInfo,
		Console:     os.Stderr,
	}
}

// core is shared between a logger and the children created by With.
type core struct {
	mu         sync.Mutex
	level      Level
	file       *rotatingFile
	console    io.Writer
	timeFormat string
}

// DefaultLogger is the default implementation of the Logger interface
type DefaultLogger struct {
	core   *core
	fields []Field
}

// New creates a logger from config.
func New(config *Config) (*DefaultLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	c := &core{
		level:      config.Level,
		console:    config.Console,
		timeFormat: "2006-01-02 15:04:05.000",
	}
	if config.FilePath != "" {
		f, err := openRotatingFile(config.FilePath, config.MaxFileSize, config.MaxBackups)
		if err != nil {
			return nil, err
		}
		c.file = f
	}
	return &DefaultLogger{core: c}, nil
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, nil, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, nil, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, nil, fields)
}

func (l *DefaultLogger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields)
}

func (l *DefaultLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &DefaultLogger{core: l.core, fields: merged}
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

func (l *DefaultLogger) Close() error {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	if l.core.file != nil {
		err := l.core.file.Close()
		l.core.file = nil
		return err
	}
	return nil
}

func (l *DefaultLogger) log(level Level, msg string, err error, fields []Field) {
	c := l.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < c.level {
		return
	}

	entry := formatEntry(time.Now().Format(c.timeFormat), level, msg, err, l.fields, fields)
	if c.console != nil {
		io.WriteString(c.console, entry)
	}
	if c.file != nil {
		c.file.Write([]byte(entry))
	}
}

func formatEntry(ts string, level Level, msg string, err error, base, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(ts)
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	if err != nil {
		sb.WriteString(" error=")
		sb.WriteString(fmt.Sprintf("%q", err.Error()))
	}
	for _, set := range [][]Field{base, fields} {
		for _, f := range set {
			sb.WriteString(" ")
			sb.WriteString(f.Key)
			sb.WriteString("=")
			if s, ok := f.Value.(string); ok && strings.ContainsAny(s, " \t\n\"") {
				sb.WriteString(fmt.Sprintf("%q", s))
			} else {
				sb.WriteString(fmt.Sprintf("%v", f.Value))
			}
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// rotatingFile is an append-only file that rolls over to numbered backups.
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	r := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	if r.maxSize > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) rotate() error {
	r.file.Close()
	for i := r.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", r.path, i), fmt.Sprintf("%s.%d", r.path, i+1))
	}
	if r.maxBackups > 0 {
		os.Rename(r.path, r.path+".1")
	} else {
		os.Remove(r.path)
	}
	return r.open()
}

func (r *rotatingFile) Close() error {
	return r.file.Close()
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Init replaces the global logger.
func Init(config *Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		globalLogger.Close()
	}
	globalLogger = l
	return nil
}

// GetLogger returns the global logger, or a no-op logger before Init.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return noopLogger{}
	}
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Close closes the global logger
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		err := globalLogger.Close()
		globalLogger = nil
		return err
	}
	return nil
}

func Debug(msg string, fields ...Field) {
	GetLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, err error, fields ...Field) {
	GetLogger().Error(msg, err, fields...)
}

// With returns a child of the global logger.
func With(fields ...Field) Logger {
	return GetLogger().With(fields...)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...Field)            {}
func (noopLogger) Info(msg string, fields ...Field)             {}
func (noopLogger) Warn(msg string, fields ...Field)             {}
func (noopLogger) Error(msg string, err error, fields ...Field) {}
func (n noopLogger) With(fields ...Field) Logger                { return n }
func (noopLogger) SetLevel(level Level)                         {}
func (noopLogger) Close() error                                 { return nil }
