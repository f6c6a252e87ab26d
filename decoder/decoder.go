// Package decoder defines the contract av1bridge expects from an external AV1
// decoder: an asynchronous accept/emit protocol where both ingestion and
// retrieval may answer "not now" (ErrAgain) instead of blocking.
package decoder

import (
	"context"
)

// Settings are passed to an Opener. Zero values mean "backend default".
type Settings struct {
	// FrameThreads is the worker thread count hint (dav1d n_threads).
	FrameThreads int

	// TileThreads is kept for backends that still distinguish tile
	// threading; dav1d >= 1.0 ignores it.
	TileThreads int

	// MaxFrameDelay bounds the number of frames the decoder may hold back
	// (dav1d max_frame_delay).
	MaxFrameDelay int
}

// Opener creates a decoder instance (the "open(settings)" call).
type Opener func(ctx context.Context, settings Settings) (Decoder, error)

// Decoder is a single decoder instance. Implementations are not required to
// be safe for concurrent use: the session serializes all calls.
type Decoder interface {
	// NewData allocates a packet buffer of the given size owned by the
	// decoder's allocator.
	NewData(ctx context.Context, size int) (*Data, error)

	// SendData submits a packet. On nil the decoder owns the data; on
	// ErrAgain the caller keeps it and retries later; on any other error
	// the caller keeps it and is expected to Unref it.
	SendData(ctx context.Context, data *Data) error

	// GetPicture returns one decoded picture, ErrAgain if more input is
	// needed, or any other error if the decoder failed.
	GetPicture(ctx context.Context) (*Picture, error)

	// SignalEndOfStream tells the decoder no more data will follow, so it
	// may output the pictures it withholds for reordering. ErrAgain means
	// the marker was not taken yet and the call is to be repeated. After
	// it succeeds, SendData may refuse packets until Flush.
	SignalEndOfStream(ctx context.Context) error

	// Flush drops all the internal state (reference frames, buffered
	// pictures, in-flight data).
	Flush(ctx context.Context)

	Close(ctx context.Context) error

	// Version identifies the decoder: the library version (e.g. "1.4.3")
	// where the backend can query it, otherwise the decoder name (e.g.
	// "libdav1d").
	Version() string
}
