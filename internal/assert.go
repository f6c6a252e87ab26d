package internal

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Assertf panics through the logger of ctx when an invariant does not hold.
func Assertf(
	ctx context.Context,
	invariant bool,
	format string,
	args ...any,
) {
	if invariant {
		return
	}
	logger.Panicf(ctx, "invariant violated: "+format, args...)
}
