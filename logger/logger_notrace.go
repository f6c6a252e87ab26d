//go:build !debug_trace
// +build !debug_trace

package logger

import (
	"context"
)

// Tracef is a no-op unless built with the debug_trace tag; the feed loop
// calls it for every packet.
func Tracef(ctx context.Context, format string, args ...any) {}
