// Package log provides the leveled, tagged context logger used across
// the module.
package log

import (
	"context"
	"io"
	"os"
	"time"

	F "github.com/sagernet/sing/common/format"
)

type Logger interface {
	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)
	Panic(args ...any)
}

type ContextLogger interface {
	Logger
	TraceContext(ctx context.Context, args ...any)
	DebugContext(ctx context.Context, args ...any)
	InfoContext(ctx context.Context, args ...any)
	WarnContext(ctx context.Context, args ...any)
	ErrorContext(ctx context.Context, args ...any)
	FatalContext(ctx context.Context, args ...any)
	PanicContext(ctx context.Context, args ...any)
}

type Factory interface {
	Level() Level
	SetLevel(level Level)
	Logger() ContextLogger
	NewLogger(tag string) ContextLogger
}

var _ Factory = (*simpleFactory)(nil)

type simpleFactory struct {
	formatter Formatter
	writer    io.Writer
	level     Level
}

func NewFactory(formatter Formatter, writer io.Writer) Factory {
	if writer == nil {
		writer = os.Stderr
	}
	return &simpleFactory{
		formatter: formatter,
		writer:    writer,
		level:     LevelTrace,
	}
}

func (f *simpleFactory) Level() Level {
	return f.level
}

func (f *simpleFactory) SetLevel(level Level) {
	f.level = level
}

func (f *simpleFactory) Logger() ContextLogger {
	return f.NewLogger("")
}

func (f *simpleFactory) NewLogger(tag string) ContextLogger {
	return &simpleLogger{f, tag}
}

var _ ContextLogger = (*simpleLogger)(nil)

type simpleLogger struct {
	*simpleFactory
	tag string
}

func (l *simpleLogger) log(ctx context.Context, level Level, args []any) {
	if level > l.level {
		return
	}
	message := l.formatter.Format(ctx, level, l.tag, F.ToString(args...), time.Now())
	if level == LevelPanic {
		panic(message)
	}
	l.writer.Write([]byte(message))
	if level == LevelFatal {
		os.Exit(1)
	}
}

func (l *simpleLogger) Trace(args ...any) { l.log(context.Background(), LevelTrace, args) }
func (l *simpleLogger) Debug(args ...any) { l.log(context.Background(), LevelDebug, args) }
func (l *simpleLogger) Info(args ...any)  { l.log(context.Background(), LevelInfo, args) }
func (l *simpleLogger) Warn(args ...any)  { l.log(context.Background(), LevelWarn, args) }
func (l *simpleLogger) Error(args ...any) { l.log(context.Background(), LevelError, args) }
func (l *simpleLogger) Fatal(args ...any) { l.log(context.Background(), LevelFatal, args) }
func (l *simpleLogger) Panic(args ...any) { l.log(context.Background(), LevelPanic, args) }

func (l *simpleLogger) TraceContext(ctx context.Context, args ...any) { l.log(ctx, LevelTrace, args) }
func (l *simpleLogger) DebugContext(ctx context.Context, args ...any) { l.log(ctx, LevelDebug, args) }
func (l *simpleLogger) InfoContext(ctx context.Context, args ...any)  { l.log(ctx, LevelInfo, args) }
func (l *simpleLogger) WarnContext(ctx context.Context, args ...any)  { l.log(ctx, LevelWarn, args) }
func (l *simpleLogger) ErrorContext(ctx context.Context, args ...any) { l.log(ctx, LevelError, args) }
func (l *simpleLogger) FatalContext(ctx context.Context, args ...any) { l.log(ctx, LevelFatal, args) }
func (l *simpleLogger) PanicContext(ctx context.Context, args ...any) { l.log(ctx, LevelPanic, args) }
