package av1bridge

import (
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/presenter"
)

var (
	// ErrInvalidArgument is a caller mistake; nothing was changed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWouldBlock means the input queue is full: dequeue pictures and
	// retry. It is an expected answer, not a failure.
	ErrWouldBlock = errors.New("input queue is full")

	ErrOutOfMemory = errors.New("out of memory")

	// ErrUnsupported means the picture cannot be presented; the session
	// stays usable.
	ErrUnsupported = presenter.ErrUnsupported

	// ErrNoDevice means no window is bound.
	ErrNoDevice = errors.New("no window is bound")

	ErrClosed = fmt.Errorf("%w: the session is closed", ErrInvalidArgument)

	// ErrEndOfStream is returned by Push after SignalEndOfStream; Flush
	// starts a new stream.
	ErrEndOfStream = fmt.Errorf("%w: the end of stream was signaled, flush first", ErrInvalidArgument)
)
