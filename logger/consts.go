package logger

import (
	"github.com/facebookincubator/go-belt/tool/logger"
)

type Level = logger.Level

const (
	LevelError   = logger.LevelError
	LevelWarning = logger.LevelWarning
	LevelInfo    = logger.LevelInfo
	LevelDebug   = logger.LevelDebug

	// LevelTrace is only effective in binaries built with the debug_trace tag.
	LevelTrace = logger.LevelTrace
)
