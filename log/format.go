package log

import (
	"context"
	"strings"
	"time"

	F "github.com/sagernet/sing/common/format"

	"github.com/logrusorgru/aurora"
)

type Formatter struct {
	DisableColors    bool
	DisableTimestamp bool
	TimestampFormat  string
}

func (f Formatter) Format(ctx context.Context, level Level, tag string, message string, timestamp time.Time) string {
	levelString := strings.ToUpper(FormatLevel(level))
	if !f.DisableColors {
		switch level {
		case LevelDebug, LevelTrace:
			levelString = aurora.White(levelString).String()
		case LevelInfo:
			levelString = aurora.Cyan(levelString).String()
		case LevelWarn:
			levelString = aurora.Yellow(levelString).String()
		case LevelError, LevelFatal, LevelPanic:
			levelString = aurora.Red(levelString).String()
		}
	}
	if tag != "" {
		message = tag + ": " + message
	}
	if ctx != nil {
		if id, hasID := IDFromContext(ctx); hasID {
			if !f.DisableColors {
				message = F.ToString("[", aurora.Magenta(id).String(), "] ", message)
			} else {
				message = F.ToString("[", id, "] ", message)
			}
		}
	}
	if f.DisableTimestamp {
		message = levelString + " " + message
	} else {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = "-0700 2006-01-02 15:04:05"
		}
		message = timestamp.Format(timestampFormat) + " " + levelString + " " + message
	}
	if message[len(message)-1] != '\n' {
		message += "\n"
	}
	return message
}
