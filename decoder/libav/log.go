package libav

import (
	"context"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/av1bridge/logger"
)

func LogLevelToAstiav(level logger.Level) astiav.LogLevel {
	switch level {
	case logger.LevelTrace:
		return astiav.LogLevelTrace
	case logger.LevelDebug:
		return astiav.LogLevelDebug
	case logger.LevelInfo:
		return astiav.LogLevelInfo
	case logger.LevelWarning:
		return astiav.LogLevelWarning
	case logger.LevelError:
		return astiav.LogLevelError
	default:
		return astiav.LogLevelFatal
	}
}

func LogLevelFromAstiav(level astiav.LogLevel) logger.Level {
	switch {
	case level >= astiav.LogLevelTrace:
		return logger.LevelTrace
	case level >= astiav.LogLevelDebug:
		return logger.LevelDebug
	case level >= astiav.LogLevelInfo:
		return logger.LevelInfo
	case level >= astiav.LogLevelWarning:
		return logger.LevelWarning
	default:
		return logger.LevelError
	}
}

// SetupLogging routes the libav log messages to the logger of ctx.
func SetupLogging(ctx context.Context, level logger.Level) {
	astiav.SetLogLevel(LogLevelToAstiav(level))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		logger.Logf(ctx,
			LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})
}
