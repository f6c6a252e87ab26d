package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v3/pkg/media/ivfreader"
)

type IVF struct {
	reader *ivfreader.IVFReader
	header *ivfreader.IVFFileHeader
}

var _ Source = (*IVF)(nil)

func NewIVF(r io.Reader) (*IVF, error) {
	reader, header, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the IVF header: %w", err)
	}
	if header.FourCC != "AV01" {
		return nil, fmt.Errorf("%w: IVF FourCC is '%s', expected 'AV01'", ErrUnknownFormat, header.FourCC)
	}
	if header.TimebaseDenominator == 0 || header.TimebaseNumerator == 0 {
		return nil, fmt.Errorf("invalid IVF timebase %d/%d", header.TimebaseNumerator, header.TimebaseDenominator)
	}
	return &IVF{
		reader: reader,
		header: header,
	}, nil
}

func (s *IVF) Info() Info {
	return Info{
		Format: "ivf",
		Width:  int(s.header.Width),
		Height: int(s.header.Height),
	}
}

func (s *IVF) NextPacket() (*Packet, error) {
	data, frameHeader, err := s.reader.ParseNextFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("unable to read an IVF frame: %w", err)
	}

	// timestamps are in units of numerator/denominator seconds
	pts := int64(frameHeader.Timestamp) * int64(s.header.TimebaseNumerator) * 1_000_000 / int64(s.header.TimebaseDenominator)
	return &Packet{
		Data:     data,
		PTS:      pts,
		Keyframe: IsKeyframe(data),
	}, nil
}
