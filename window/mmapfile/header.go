// Package mmapfile implements window.Window on top of a memory-mapped file,
// so another process can pick the frames up.
//
// The file starts with a HeaderSize-byte Header followed by one YV12
// buffer. Sequence is incremented on every post.
package mmapfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/window"
)

const HeaderSize = 64

var Magic = [8]byte{'A', 'V', '1', 'B', 'Y', 'V', '1', '2'}

var ErrInvalidHeader = errors.New("invalid header")

type Header struct {
	Width    uint32
	Height   uint32
	Stride   uint32
	Format   window.PixelFormat
	Size     uint32
	Sequence uint64
}

func (h Header) Encode(b []byte) {
	_ = b[HeaderSize-1]
	copy(b[0:8], Magic[:])
	binary.LittleEndian.PutUint32(b[8:], h.Width)
	binary.LittleEndian.PutUint32(b[12:], h.Height)
	binary.LittleEndian.PutUint32(b[16:], h.Stride)
	binary.LittleEndian.PutUint32(b[20:], uint32(h.Format))
	binary.LittleEndian.PutUint32(b[24:], h.Size)
	binary.LittleEndian.PutUint64(b[32:], h.Sequence)
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is too short", ErrInvalidHeader, len(b))
	}
	if [8]byte(b[0:8]) != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, b[0:8])
	}
	return Header{
		Width:    binary.LittleEndian.Uint32(b[8:]),
		Height:   binary.LittleEndian.Uint32(b[12:]),
		Stride:   binary.LittleEndian.Uint32(b[16:]),
		Format:   window.PixelFormat(binary.LittleEndian.Uint32(b[20:])),
		Size:     binary.LittleEndian.Uint32(b[24:]),
		Sequence: binary.LittleEndian.Uint64(b[32:]),
	}, nil
}
