package av1bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/decoder/decodertest"
)

func newTestSession(t *testing.T, dec *decodertest.Decoder, cfg Config) *Session {
	t.Helper()
	s, err := New(context.Background(), dec.Opener(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func pushN(t *testing.T, s *Session, from, to int) {
	t.Helper()
	ctx := context.Background()
	for i := from; i < to; i++ {
		require.NoError(t, s.Push(ctx, []byte{byte(i), 0xAA, 0xBB}, 0, 3, int64(i)))
	}
}

func TestNewThreadCount(t *testing.T) {
	t.Parallel()
	for _, threads := range []int{-5, 0, 1} {
		dec := decodertest.New(16, 8)
		newTestSession(t, dec, Config{FrameThreads: threads})
		require.Equal(t, 1, dec.Settings.FrameThreads)
		require.Equal(t, 1, dec.Settings.TileThreads)
	}

	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{FrameThreads: 6})
	require.Equal(t, 6, dec.Settings.FrameThreads)
	require.Equal(t, DefaultInputQueueCapacity, s.Config.InputQueueCapacity)
	require.Equal(t, "av1bridge-dav1d-1.4.3", s.Name())
}

func TestNewFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errOpen := errors.New("no such codec")

	s, err := New(ctx, decodertest.FailingOpener(errOpen), Config{})
	require.ErrorIs(t, err, errOpen)
	require.Nil(t, s)

	s, err = New(ctx, nil, Config{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Nil(t, s)
}

func TestPushInvalidArgument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{})

	buf := make([]byte, 10)
	for _, tc := range []struct {
		name   string
		buf    []byte
		offset int
		length int
	}{
		{"nil", nil, 0, 1},
		{"zero_length", buf, 0, 0},
		{"negative_length", buf, 0, -1},
		{"negative_offset", buf, -1, 2},
		{"overflow", buf, 5, 6},
		{"offset_past_end", buf, 11, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Push(ctx, tc.buf, tc.offset, tc.length, 0)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	require.Zero(t, s.QueueLength())
	require.Zero(t, dec.SendCalls)
	require.Zero(t, s.GetStats().PacketsSubmitted)
}

func TestPushCopiesRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{})

	buf := []byte{1, 2, 0x42, 4, 5}
	require.NoError(t, s.Push(ctx, buf, 2, 2, 100))
	buf[2] = 0

	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	defer res.Picture.Release()
	require.Equal(t, int64(100), res.PTS())
	require.Equal(t, byte(0x42), res.Picture.Planes[decoder.PlaneY][0])

	stats := s.GetStats()
	require.Equal(t, uint64(2), stats.BytesSubmitted)
	require.Equal(t, uint64(2), stats.BytesAccepted)
	require.Equal(t, int64(100), stats.LastSubmittedPTS)
}

func TestPushWouldBlock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 1
	s := newTestSession(t, dec, Config{InputQueueCapacity: 2})

	pushN(t, s, 0, 3)
	require.Equal(t, 2, s.QueueLength())
	require.False(t, s.HasCapacity())

	err := s.Push(ctx, []byte{3}, 0, 1, 3)
	require.ErrorIs(t, err, ErrWouldBlock)
	require.Equal(t, 2, s.QueueLength())
	require.Zero(t, dec.Unrefs)
	require.Equal(t, []int64{0}, dec.Accepted)

	stats := s.GetStats()
	require.Equal(t, uint64(3), stats.PacketsSubmitted)
	require.Equal(t, uint64(1), stats.PacketsAccepted)
	require.NotZero(t, stats.PacketsBackpressured)
}

func TestFIFOAcrossBackpressure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 2
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 5)
	require.Equal(t, 3, s.QueueLength())

	var got []int64
	for i := 0; i < 20 && len(got) < 5; i++ {
		res := s.Dequeue(ctx)
		require.NotEqual(t, DequeueStatusFatal, res.Status, res.String())
		if res.Status != DequeueStatusOK {
			continue
		}
		got = append(got, res.PTS())
		s.ReleasePicture(ctx, res.Picture)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 4}, got)
	require.Equal(t, []int64{0, 1, 2, 3, 4}, dec.Accepted)
	require.Zero(t, s.QueueLength())
	require.Equal(t, 5, dec.Releases)
	require.Zero(t, dec.Unrefs)
}

func TestRejectedPacketIsDropped(t *testing.T) {
	t.Parallel()
	dec := decodertest.New(16, 8)
	dec.Reject = func(data *decoder.Data) error {
		if data.PTS == 1 {
			return decoder.CodedError{Op: "send_data", Code: -22}
		}
		return nil
	}
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 3)
	require.Equal(t, []int64{0, 2}, dec.Accepted)
	require.Equal(t, []int64{1}, dec.Rejected)
	require.Equal(t, 1, dec.Unrefs)
	require.Zero(t, s.QueueLength())
	require.Equal(t, uint64(1), s.GetStats().PacketsRejected)
}

func TestPushOutOfMemory(t *testing.T) {
	t.Parallel()
	dec := decodertest.New(16, 8)
	dec.FailAlloc = true
	s := newTestSession(t, dec, Config{})

	err := s.Push(context.Background(), []byte{1}, 0, 1, 0)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Zero(t, s.QueueLength())
}

func TestDequeueBeforePush(t *testing.T) {
	t.Parallel()
	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{})

	res := s.Dequeue(context.Background())
	require.Equal(t, DequeueStatusPending, res.Status)
	require.Nil(t, res.Picture)
	require.Zero(t, res.Width())
	require.Equal(t, uint64(1), s.GetStats().PicturesStarved)
}

func TestFlush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 1
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 3)
	require.Equal(t, 2, s.QueueLength())

	s.Flush(ctx)
	require.Zero(t, s.QueueLength())
	require.Equal(t, 2, dec.Unrefs)
	require.Equal(t, 1, dec.Flushes)
	require.True(t, s.HasCapacity())

	stats := s.GetStats()
	require.Equal(t, uint64(2), stats.PacketsDroppedAtFlush)
	require.Equal(t, uint64(2), stats.FramesNeverDecoded)

	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusPending, res.Status, res.String())

	pushN(t, s, 10, 11)
	res = s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	require.Equal(t, int64(10), res.PTS())
	res.Picture.Release()
}

func TestEndOfStreamDrains(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.Delay = 2
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 3)

	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	res.Picture.Release()
	res = s.Dequeue(ctx)
	require.Equal(t, DequeueStatusPending, res.Status, res.String())

	require.NoError(t, s.SignalEndOfStream(ctx))
	require.True(t, s.IsEndOfStream())
	require.Equal(t, 1, dec.EOSSignaled)

	var got []int64
	for i := 0; i < 10; i++ {
		res := s.Dequeue(ctx)
		require.NotEqual(t, DequeueStatusFatal, res.Status, res.String())
		if res.Status == DequeueStatusOK {
			got = append(got, res.PTS())
			res.Picture.Release()
		}
	}
	require.Equal(t, []int64{1, 2}, got)
	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)
	require.Equal(t, 1, dec.EOSSignaled)
}

func TestEndOfStreamWaitsForQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 1
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 2)
	require.NoError(t, s.SignalEndOfStream(ctx))
	require.Zero(t, dec.EOSSignaled)

	res := s.Dequeue(ctx)
	require.Equal(t, int64(0), res.PTS())
	res.Picture.Release()

	res = s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	require.Equal(t, int64(1), res.PTS())
	res.Picture.Release()
	require.Equal(t, 1, dec.EOSSignaled)

	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)
}

func TestPushAfterEndOfStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 1)
	require.NoError(t, s.SignalEndOfStream(ctx))
	require.True(t, s.IsEndOfStream())

	err := s.Push(ctx, []byte{1, 0xAA, 0xBB}, 0, 3, 1)
	require.ErrorIs(t, err, ErrEndOfStream)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Zero(t, s.QueueLength())
	require.True(t, s.IsEndOfStream())

	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	require.Equal(t, int64(0), res.PTS())
	res.Picture.Release()
	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)

	// the decoder itself refuses packets once drained
	sendErr := dec.SendData(ctx, decoder.NewData([]byte{2}, nil))
	require.Equal(t, decodertest.CodeEndOfStream, decoder.CodeOf(sendErr))
	require.Equal(t, []int64{0}, dec.Accepted)

	s.Flush(ctx)
	require.False(t, s.IsEndOfStream())
	pushN(t, s, 3, 4)
	res = s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	require.Equal(t, int64(3), res.PTS())
	res.Picture.Release()
	require.Equal(t, []int64{0, 3}, dec.Accepted)
}

func TestEndOfStreamRetriedWhenDecoderBusy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.EndOfStreamAgain = 2
	s := newTestSession(t, dec, Config{})

	pushN(t, s, 0, 1)
	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status, res.String())
	res.Picture.Release()

	require.NoError(t, s.SignalEndOfStream(ctx))
	require.Equal(t, 1, dec.EOSCalls)
	require.Zero(t, dec.EOSSignaled)

	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)
	require.Equal(t, 2, dec.EOSCalls)
	require.Zero(t, dec.EOSSignaled)

	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)
	require.Equal(t, 3, dec.EOSCalls)
	require.Equal(t, 1, dec.EOSSignaled)

	require.Equal(t, DequeueStatusPending, s.Dequeue(ctx).Status)
	require.Equal(t, 3, dec.EOSCalls)
}

func TestDequeueFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.GetPictureErr = decoder.CodedError{Op: "get_picture", Code: -12}
	s := newTestSession(t, dec, Config{})

	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusFatal, res.Status)
	require.Equal(t, -12, res.Code)
	require.Equal(t, -1, res.Width())
	require.Error(t, res.Err)
	require.Nil(t, res.Picture)

	res = s.Dequeue(ctx)
	require.Equal(t, DequeueStatusPending, res.Status)
}

func TestReleasePicture(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	s := newTestSession(t, dec, Config{})

	s.ReleasePicture(ctx, nil)

	pushN(t, s, 0, 1)
	res := s.Dequeue(ctx)
	require.Equal(t, DequeueStatusOK, res.Status)
	s.ReleasePicture(ctx, res.Picture)
	s.ReleasePicture(ctx, res.Picture)
	require.Equal(t, 1, dec.Releases)
}

func TestClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 1
	s, err := New(ctx, dec.Opener(), Config{})
	require.NoError(t, err)

	pushN(t, s, 0, 3)
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	require.True(t, dec.IsClosed())
	require.Equal(t, 2, dec.Unrefs)
	require.Equal(t, uint64(2), s.GetStats().FramesNeverDecoded)
	require.True(t, s.IsClosed())
	require.Empty(t, s.Version())

	err = s.Push(ctx, []byte{1}, 0, 1, 0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, s.HasCapacity())
	assert.Equal(t, DequeueStatusFatal, s.Dequeue(ctx).Status)
	assert.ErrorIs(t, s.SignalEndOfStream(ctx), ErrClosed)
	s.Flush(ctx)

	var nilSession *Session
	require.NoError(t, nilSession.Close(ctx))
}
