package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelTrace LogLevel = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// slogLevel spaces our levels the way slog does (Debug=-4, Info=0, Warn=4, Error=8).
func (l LogLevel) slogLevel() slog.Level {
	return slog.Level(int(l-LevelInfo) * 4)
}

// ParseLevel maps a config string to a LogLevel. Unknown names are an error.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       LogLevel `json:"level"`
	Format      string   `json:"format"`       // "json" or "text"
	Output      string   `json:"output"`       // "stdout", "stderr", or file path
	EnableFile  bool     `json:"enable_file"`  // Enable file logging
	FilePath    string   `json:"file_path"`    // Log file path
	EnableAsync bool     `json:"enable_async"` // Enable async logging
}

// Logger provides structured logging with context support
type Logger struct {
	config  LogConfig
	level   LogLevel
	slogger *slog.Logger
	file    *os.File
	asyncCh chan LogEntry
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	once    sync.Once
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	FixtureID *int64         `json:"fixture_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

// DefaultLogConfig returns the service defaults: JSON to stdout, async.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       LevelInfo,
		Format:      "json",
		Output:      "stdout",
		FilePath:    "/var/log/team-matcher/app.log",
		EnableAsync: true,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config LogConfig) (*Logger, error) {
	var writer io.Writer
	var file *os.File
	switch {
	case config.EnableFile:
		f, err := openLogFile(config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file logging: %w", err)
		}
		file = f
		writer = f
	case config.Output == "stderr":
		writer = os.Stderr
	default:
		writer = os.Stdout
	}
	l := NewWithWriter(config, writer)
	l.file = file
	return l, nil
}

// NewWithWriter builds a logger on an arbitrary writer. Tests use it with a buffer.
func NewWithWriter(config LogConfig, w io.Writer) *Logger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Logger{config: config, level: config.Level, ctx: ctx, cancel: cancel}

	opts := &slog.HandlerOptions{Level: LevelTrace.slogLevel(), ReplaceAttr: renameLevels}
	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	l.slogger = slog.New(handler)

	if config.EnableAsync {
		l.asyncCh = make(chan LogEntry, 1000)
		l.wg.Add(1)
		go l.asyncWorker()
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required for file logging")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// renameLevels prints TRACE and FATAL instead of slog's DEBUG-4 / ERROR+4.
func renameLevels(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok {
		switch {
		case lvl < LevelDebug.slogLevel():
			a.Value = slog.StringValue("TRACE")
		case lvl > LevelError.slogLevel():
			a.Value = slog.StringValue("FATAL")
		}
	}
	return a
}

// asyncWorker processes log entries asynchronously
func (l *Logger) asyncWorker() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.asyncCh:
			l.writeEntry(entry)
		case <-l.ctx.Done():
			for {
				select {
				case entry := <-l.asyncCh:
					l.writeEntry(entry)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeEntry(entry LogEntry) {
	attrs := make([]slog.Attr, 0, len(entry.Fields)+4)
	if entry.FixtureID != nil {
		attrs = append(attrs, slog.Int64("fixture_id", *entry.FixtureID))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}
	if entry.Caller != "" {
		attrs = append(attrs, slog.String("caller", entry.Caller))
	}
	for key, value := range entry.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	l.slogger.LogAttrs(context.Background(), entry.Level.slogLevel(), entry.Message, attrs...)
}

// SetLevel changes the minimum level at runtime (config hot reload).
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Close flushes pending async entries and closes the log file. Safe to call twice.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		l.wg.Wait()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// WithContext returns a logger that lifts request and fixture ids out of ctx.
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, ctx: ctx}
}

// WithComponent returns a logger that tags every entry with component.
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger    *Logger
	ctx       context.Context
	component string
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component string
}

func (l *Logger) Trace(msg string, fields ...Field) { l.log(LevelTrace, msg, nil, fields...) }
func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, nil, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, nil, fields...) }

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields...)
}

// Fatal logs at fatal level, flushes and exits the process.
func (l *Logger) Fatal(msg string, err error, fields ...Field) {
	l.log(LevelFatal, msg, err, fields...)
	l.Close()
	os.Exit(1)
}

func (cl *ComponentLogger) with(fields []Field) []Field {
	return append(fields, String("component", cl.component))
}

func (cl *ComponentLogger) Trace(msg string, fields ...Field) {
	cl.logger.log(LevelTrace, msg, nil, cl.with(fields)...)
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(LevelDebug, msg, nil, cl.with(fields)...)
}

func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.log(LevelInfo, msg, nil, cl.with(fields)...)
}

func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(LevelWarn, msg, nil, cl.with(fields)...)
}

func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(LevelError, msg, err, cl.with(fields)...)
}

// Ctx binds the component logger to a request context.
func (cl *ComponentLogger) Ctx(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: cl.logger, ctx: ctx, component: cl.component}
}

func (cl *ContextLogger) fields(fields []Field) []Field {
	if cl.component != "" {
		return append(fields, String("component", cl.component))
	}
	return fields
}

func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelDebug, msg, nil, cl.fields(fields)...)
}

func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelInfo, msg, nil, cl.fields(fields)...)
}

func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelWarn, msg, nil, cl.fields(fields)...)
}

func (cl *ContextLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelError, msg, err, cl.fields(fields)...)
}

func (l *Logger) log(level LogLevel, msg string, err error, fields ...Field) {
	l.logWithContext(context.Background(), level, msg, err, fields...)
}

func (l *Logger) logWithContext(ctx context.Context, level LogLevel, msg string, err error, fields ...Field) {
	if level < l.Level() {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    make(map[string]any, len(fields)),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	entry.RequestID = RequestIDFrom(ctx)
	if id, ok := FixtureIDFrom(ctx); ok {
		entry.FixtureID = &id
	}

	if level >= LevelWarn {
		if _, file, line, ok := runtime.Caller(3); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}
	for _, field := range fields {
		field.AddTo(entry.Fields)
	}

	if l.config.EnableAsync && l.ctx.Err() == nil {
		select {
		case l.asyncCh <- entry:
			return
		default:
			// buffer full, fall through to a synchronous write
		}
	}
	l.writeEntry(entry)
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	fixtureIDKey
)

// WithRequestID stores a request id for loggers created from ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request id stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFixtureID stores the fixture being resolved.
func WithFixtureID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, fixtureIDKey, id)
}

// FixtureIDFrom returns the fixture id stored in ctx.
func FixtureIDFrom(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(fixtureIDKey).(int64)
	return id, ok
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// AddTo adds the field to the provided map
func (f Field) AddTo(m map[string]any) {
	m[f.Key] = f.Value
}

func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Time(key string, value time.Time) Field         { return Field{Key: key, Value: value} }
func Any(key string, value any) Field                { return Field{Key: key, Value: value} }

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
