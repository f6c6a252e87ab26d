// Package container extracts AV1 temporal units from IVF and fragmented
// MP4 files.
package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrUnknownFormat = errors.New("unknown container format")

// Packet is one temporal unit.
type Packet struct {
	Data []byte

	// PTS is in microseconds.
	PTS int64

	Keyframe bool
}

type Info struct {
	Format string
	Width  int
	Height int
}

type Source interface {
	Info() Info

	// NextPacket returns io.EOF after the last packet.
	NextPacket() (*Packet, error)
}

// Open detects the container format by its signature.
func Open(path string) (Source, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}

	src, err := NewSource(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return src, f, nil
}

// NewSource detects the format of r. MP4 sources are read into memory
// entirely.
func NewSource(r io.Reader) (Source, error) {
	br := bufio.NewReader(r)
	sig, err := br.Peek(8)
	if err != nil {
		return nil, fmt.Errorf("unable to read the signature: %w", err)
	}

	switch {
	case bytes.Equal(sig[:4], []byte("DKIF")):
		return NewIVF(br)
	case bytes.Equal(sig[4:8], []byte("ftyp")), bytes.Equal(sig[4:8], []byte("styp")):
		b, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("unable to read the file: %w", err)
		}
		return NewMP4(bytes.NewReader(b))
	default:
		return nil, fmt.Errorf("%w: signature %q", ErrUnknownFormat, sig)
	}
}
