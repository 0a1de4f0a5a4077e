package log

import "context"

var _ ContextLogger = (*nopLogger)(nil)

type nopLogger struct{}

func NewNOPLogger() ContextLogger {
	return (*nopLogger)(nil)
}

func (l *nopLogger) Trace(args ...any) {}
func (l *nopLogger) Debug(args ...any) {}
func (l *nopLogger) Info(args ...any)  {}
func (l *nopLogger) Warn(args ...any)  {}
func (l *nopLogger) Error(args ...any) {}
func (l *nopLogger) Fatal(args ...any) {}
func (l *nopLogger) Panic(args ...any) {}

func (l *nopLogger) TraceContext(ctx context.Context, args ...any) {}
func (l *nopLogger) DebugContext(ctx context.Context, args ...any) {}
func (l *nopLogger) InfoContext(ctx context.Context, args ...any)  {}
func (l *nopLogger) WarnContext(ctx context.Context, args ...any)  {}
func (l *nopLogger) ErrorContext(ctx context.Context, args ...any) {}
func (l *nopLogger) FatalContext(ctx context.Context, args ...any) {}
func (l *nopLogger) PanicContext(ctx context.Context, args ...any) {}
