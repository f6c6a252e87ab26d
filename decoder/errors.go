package decoder

import (
	"errors"
	"fmt"
)

// ErrAgain is the "try again later" answer of SendData (the decoder is full,
// drain pictures first) and GetPicture (more input is needed).
var ErrAgain = errors.New("resource temporarily unavailable")

// CodedError carries the raw (negative, errno style) decoder return value.
type CodedError struct {
	Op   string
	Code int
}

func (e CodedError) Error() string {
	return fmt.Sprintf("%s failed: %d", e.Op, e.Code)
}

// CodeOf returns the raw decoder code of err, or -1 if err carries none.
func CodeOf(err error) int {
	var codedErr CodedError
	if errors.As(err, &codedErr) {
		return codedErr.Code
	}
	return -1
}
