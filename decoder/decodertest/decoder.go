// Package decodertest provides a scripted in-memory decoder.Decoder.
package decodertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/xaionaro-go/av1bridge/decoder"
)

// CodeEndOfStream is what SendData answers after SignalEndOfStream until
// Flush, the same value libavcodec uses (AVERROR_EOF).
const CodeEndOfStream = -541478725

// Decoder turns every accepted packet into one picture.
//
// It accepts at most MaxInFlight packets whose pictures were not retrieved
// yet (answering decoder.ErrAgain beyond that), and holds back the last
// Delay pictures until end of stream to mimic reordering latency. Once the
// end of stream is signaled it refuses packets until Flush.
type Decoder struct {
	Settings decoder.Settings

	MaxInFlight int
	Delay       int

	Width    int
	Height   int
	BitDepth int
	Layout   decoder.PixelLayout

	// Reject, if set, decides whether an incoming packet is refused.
	Reject func(*decoder.Data) error

	// GetPictureErr, if set, is returned once by the next GetPicture.
	GetPictureErr error

	// FailAlloc makes NewData fail.
	FailAlloc bool

	// EndOfStreamAgain is how many SignalEndOfStream calls answer
	// decoder.ErrAgain before one succeeds.
	EndOfStreamAgain int

	mutex       sync.Mutex
	inFlight    []*decoder.Data
	eos         bool
	closed      bool
	Accepted    []int64
	Rejected    []int64
	Unrefs      int
	Releases    int
	Flushes     int
	SendCalls   int
	GetCalls    int
	EOSCalls    int
	EOSSignaled int
}

var _ decoder.Decoder = (*Decoder)(nil)

// New returns a decoder producing 8-bit I420 pictures of the given size.
func New(width, height int) *Decoder {
	return &Decoder{
		MaxInFlight: 4,
		Width:       width,
		Height:      height,
		BitDepth:    8,
		Layout:      decoder.PixelLayoutI420,
	}
}

// Opener returns an Opener handing out d, recording the settings.
func (d *Decoder) Opener() decoder.Opener {
	return func(ctx context.Context, settings decoder.Settings) (decoder.Decoder, error) {
		d.Settings = settings
		return d, nil
	}
}

// FailingOpener is an Opener that always fails.
func FailingOpener(err error) decoder.Opener {
	return func(ctx context.Context, settings decoder.Settings) (decoder.Decoder, error) {
		return nil, err
	}
}

func (d *Decoder) NewData(ctx context.Context, size int) (*decoder.Data, error) {
	if d.FailAlloc {
		return nil, fmt.Errorf("unable to allocate %d bytes", size)
	}
	return decoder.NewData(make([]byte, size), func(*decoder.Data) {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		d.Unrefs++
	}), nil
}

func (d *Decoder) SendData(ctx context.Context, data *decoder.Data) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.SendCalls++
	if d.closed {
		return decoder.CodedError{Op: "send_data", Code: -22}
	}
	if d.eos {
		d.Rejected = append(d.Rejected, data.PTS)
		return decoder.CodedError{Op: "send_data", Code: CodeEndOfStream}
	}
	if d.Reject != nil {
		if err := d.Reject(data); err != nil {
			d.Rejected = append(d.Rejected, data.PTS)
			return err
		}
	}
	if d.MaxInFlight > 0 && len(d.inFlight) >= d.MaxInFlight {
		return decoder.ErrAgain
	}
	d.inFlight = append(d.inFlight, data)
	d.Accepted = append(d.Accepted, data.PTS)
	return nil
}

func (d *Decoder) GetPicture(ctx context.Context) (*decoder.Picture, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.GetCalls++
	if err := d.GetPictureErr; err != nil {
		d.GetPictureErr = nil
		return nil, err
	}
	if len(d.inFlight) == 0 {
		return nil, decoder.ErrAgain
	}
	if !d.eos && len(d.inFlight) <= d.Delay {
		return nil, decoder.ErrAgain
	}
	data := d.inFlight[0]
	d.inFlight = d.inFlight[1:]
	return d.newPicture(data), nil
}

func (d *Decoder) newPicture(data *decoder.Data) *decoder.Picture {
	pic := decoder.NewPicture(func(*decoder.Picture) {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		d.Releases++
	})
	pic.Width = d.Width
	pic.Height = d.Height
	pic.BitDepth = d.BitDepth
	pic.Layout = d.Layout
	pic.PTS = data.PTS

	var fill byte
	if len(data.Buf) > 0 {
		fill = data.Buf[0]
	}
	bytesPerSample := (d.BitDepth + 7) / 8
	chromaWidth, chromaHeight := pic.ChromaSize()
	pic.Strides = [3]int{d.Width * bytesPerSample, chromaWidth * bytesPerSample, chromaWidth * bytesPerSample}
	rows := [3]int{d.Height, chromaHeight, chromaHeight}
	for plane := range pic.Planes {
		buf := make([]byte, pic.Strides[plane]*rows[plane])
		for idx := range buf {
			buf[idx] = fill + byte(plane)
		}
		pic.Planes[plane] = buf
	}
	return pic
}

func (d *Decoder) SignalEndOfStream(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.EOSCalls++
	if d.EndOfStreamAgain > 0 {
		d.EndOfStreamAgain--
		return decoder.ErrAgain
	}
	d.EOSSignaled++
	d.eos = true
	return nil
}

func (d *Decoder) Flush(ctx context.Context) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.Flushes++
	d.inFlight = nil
	d.eos = false
}

func (d *Decoder) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.closed = true
	d.inFlight = nil
	return nil
}

func (d *Decoder) IsClosed() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.closed
}

// InFlight returns the amount of accepted packets not yet turned into
// retrieved pictures.
func (d *Decoder) InFlight() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.inFlight)
}

func (d *Decoder) Version() string {
	return "1.4.3"
}
