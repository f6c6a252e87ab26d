package bridge

import (
	"errors"
	"strconv"

	"github.com/xaionaro-go/av1bridge"
)

// Status is a negated POSIX errno (Linux numbering); 0 is success.
type Status int

const (
	StatusOK              = Status(0)
	StatusIO              = Status(-5)
	StatusWouldBlock      = Status(-11)
	StatusOutOfMemory     = Status(-12)
	StatusNoDevice        = Status(-19)
	StatusInvalidArgument = Status(-22)
	StatusUnsupported     = Status(-95)
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusIO:
		return "EIO"
	case StatusWouldBlock:
		return "EAGAIN"
	case StatusOutOfMemory:
		return "ENOMEM"
	case StatusNoDevice:
		return "ENODEV"
	case StatusInvalidArgument:
		return "EINVAL"
	case StatusUnsupported:
		return "EOPNOTSUPP"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// StatusFromError maps the session errors to status codes.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, av1bridge.ErrWouldBlock):
		return StatusWouldBlock
	case errors.Is(err, av1bridge.ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, av1bridge.ErrOutOfMemory):
		return StatusOutOfMemory
	case errors.Is(err, av1bridge.ErrUnsupported):
		return StatusUnsupported
	case errors.Is(err, av1bridge.ErrNoDevice):
		return StatusNoDevice
	default:
		return StatusIO
	}
}
