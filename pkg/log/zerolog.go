package log

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. Every logger it hands
// out shares one zerolog root so SetLevel applies to all of them.
type ZerologProvider struct {
	mu    sync.RWMutex
	root  zerolog.Logger
	level Level
}

// NewZerologProvider creates a provider writing JSON lines to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter creates a provider writing to w.
// Library warnings raised through errors.Warn are routed to it.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	root := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level))
	p := &ZerologProvider{root: root, level: level}
	cfErrors.SetWarningHandler(func(warning error) {
		ev := p.rootLogger().Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return p
}

// NewConsoleProvider creates a provider with human readable output, used by the CLI.
func NewConsoleProvider(w io.Writer, level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}, level)
}

func (p *ZerologProvider) rootLogger() *zerolog.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l := p.root
	return &l
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{provider: p}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{provider: p, fields: []any{ComponentKey, name}}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.root = p.root.Level(toZerologLevel(level))
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

type zerologLogger struct {
	provider *ZerologProvider
	fields   []any
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}
	ev.Fields(append(append([]any{}, l.fields...), fields...)).Msg(msg)
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.provider.rootLogger().Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.provider.rootLogger().Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.provider.rootLogger().Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	l.emit(l.provider.rootLogger().Error(), msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &zerologLogger{provider: l.provider, fields: merged}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	l.provider.mu.RLock()
	defer l.provider.mu.RUnlock()
	return level >= l.provider.level
}

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
)

// SetProvider replaces the process-wide provider.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

func provider() LoggerProvider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p != nil {
		return p
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(LevelWarn)
	}
	return globalProvider
}

// GetLogger returns the default logger of the process-wide provider.
func GetLogger() Logger {
	return provider().GetLogger()
}

// GetLoggerWithName returns a named logger of the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return provider().GetLoggerWithName(name)
}
