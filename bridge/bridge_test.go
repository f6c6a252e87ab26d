package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/av1bridge"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/decoder/decodertest"
	"github.com/xaionaro-go/av1bridge/window/memory"
)

func TestStatusFromError(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status Status
	}{
		{nil, StatusOK},
		{av1bridge.ErrInvalidArgument, StatusInvalidArgument},
		{av1bridge.ErrClosed, StatusInvalidArgument},
		{av1bridge.ErrEndOfStream, StatusInvalidArgument},
		{fmt.Errorf("wrapped: %w", av1bridge.ErrWouldBlock), StatusWouldBlock},
		{av1bridge.ErrOutOfMemory, StatusOutOfMemory},
		{av1bridge.ErrUnsupported, StatusUnsupported},
		{av1bridge.ErrNoDevice, StatusNoDevice},
		{errors.New("something else"), StatusIO},
	} {
		t.Run(fmt.Sprint(tc.err), func(t *testing.T) {
			require.Equal(t, tc.status, StatusFromError(tc.err))
		})
	}
	require.Equal(t, "EAGAIN", StatusWouldBlock.String())
	require.Equal(t, "Status(-7)", Status(-7).String())
}

func newTestBridge(dec *decodertest.Decoder) *Bridge {
	return New(dec.Opener(), dec.Version)
}

func TestBridgeLifecycle(t *testing.T) {
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	b := newTestBridge(dec)
	require.Equal(t, "1.4.3", b.GetVersion())

	h := b.Create(ctx, 0)
	require.NotZero(t, h)
	require.Equal(t, 1, dec.Settings.FrameThreads)
	require.Equal(t, 1, b.Sessions(ctx))

	out := b.Dequeue(ctx, h)
	require.Equal(t, DequeueOutput{}, out)

	require.Equal(t, StatusOK, b.Push(ctx, h, []byte{1, 2, 3}, 0, 3, 33))
	require.Equal(t, StatusInvalidArgument, b.Push(ctx, h, []byte{1}, 0, 5, 0))
	require.True(t, b.HasCapacity(ctx, h))

	out = b.Dequeue(ctx, h)
	require.NotZero(t, out.Picture)
	require.Equal(t, 16, out.Width)
	require.Equal(t, 8, out.Height)
	require.Equal(t, int64(33), out.PTS)
	require.False(t, out.Fatal)

	require.Equal(t, StatusNoDevice, b.Render(ctx, h, out.Picture))
	w := memory.New()
	require.Equal(t, StatusOK, b.SetSurface(ctx, h, w))
	require.Equal(t, StatusOK, b.Render(ctx, h, out.Picture))
	require.Equal(t, 1, w.PostCount(ctx))
	require.Equal(t, StatusInvalidArgument, b.Render(ctx, h, out.Picture+100))

	b.ReleasePicture(ctx, h, out.Picture)
	b.ReleasePicture(ctx, h, out.Picture)
	b.ReleasePicture(ctx, h, 0)
	require.Equal(t, 1, dec.Releases)
	require.Equal(t, StatusInvalidArgument, b.Render(ctx, h, out.Picture))

	b.Flush(ctx, h)
	require.Equal(t, 1, dec.Flushes)
	require.Equal(t, StatusOK, b.SignalEndOfStream(ctx, h))
	require.Equal(t, StatusInvalidArgument, b.Push(ctx, h, []byte{1}, 0, 1, 34))

	stats := b.GetStats(ctx, h)
	require.NotNil(t, stats)
	require.Equal(t, uint64(1), stats.FramesPresented)

	require.Equal(t, StatusOK, b.Close(ctx, h))
	require.Zero(t, w.Refs(ctx))
	require.Equal(t, StatusInvalidArgument, b.Close(ctx, h))
	require.Zero(t, b.Sessions(ctx))
}

func TestBridgeUnknownHandle(t *testing.T) {
	ctx := context.Background()
	b := newTestBridge(decodertest.New(16, 8))

	const h = Handle(42)
	require.Equal(t, StatusInvalidArgument, b.Push(ctx, h, []byte{1}, 0, 1, 0))
	require.False(t, b.HasCapacity(ctx, h))
	require.Equal(t, StatusInvalidArgument, b.Render(ctx, h, 1))
	require.Equal(t, StatusInvalidArgument, b.SetSurface(ctx, h, nil))
	require.Equal(t, StatusInvalidArgument, b.SignalEndOfStream(ctx, h))
	require.Equal(t, StatusInvalidArgument, b.Close(ctx, h))
	require.Nil(t, b.GetStats(ctx, h))
	b.Flush(ctx, h)
	b.ReleasePicture(ctx, h, 1)

	out := b.Dequeue(ctx, h)
	require.True(t, out.Fatal)
	require.Equal(t, -1, out.Width)
}

func TestBridgeCreateFailure(t *testing.T) {
	ctx := context.Background()
	b := New(decodertest.FailingOpener(errors.New("nope")), nil)
	require.Zero(t, b.Create(ctx, 1))
	require.Zero(t, b.Sessions(ctx))
	require.Empty(t, b.GetVersion())
}

func TestBridgeWouldBlockAndFatal(t *testing.T) {
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	dec.MaxInFlight = 1
	b := newTestBridge(dec)
	b.Config.InputQueueCapacity = 1

	h := b.Create(ctx, 2)
	require.NotZero(t, h)
	require.Equal(t, 2, dec.Settings.FrameThreads)

	require.Equal(t, StatusOK, b.Push(ctx, h, []byte{1}, 0, 1, 0))
	require.Equal(t, StatusOK, b.Push(ctx, h, []byte{2}, 0, 1, 1))
	require.False(t, b.HasCapacity(ctx, h))
	require.Equal(t, StatusWouldBlock, b.Push(ctx, h, []byte{3}, 0, 1, 2))

	dec.GetPictureErr = decoder.CodedError{Op: "get_picture", Code: -5}
	out := b.Dequeue(ctx, h)
	require.True(t, out.Fatal)
	require.Equal(t, -1, out.Width)
	require.Equal(t, -5, out.ErrorCode)
	require.Zero(t, out.Picture)
}

func TestBridgeCloseReleasesPictures(t *testing.T) {
	ctx := context.Background()
	dec := decodertest.New(16, 8)
	b := newTestBridge(dec)

	h := b.Create(ctx, 1)
	other := b.Create(ctx, 1)
	require.NotEqual(t, h, other)

	require.Equal(t, StatusOK, b.Push(ctx, h, []byte{1}, 0, 1, 0))
	out := b.Dequeue(ctx, h)
	require.NotZero(t, out.Picture)

	b.ReleasePicture(ctx, other, out.Picture)
	require.Zero(t, dec.Releases)

	require.Equal(t, StatusOK, b.Close(ctx, h))
	require.Equal(t, 1, dec.Releases)
	require.Equal(t, 1, b.Sessions(ctx))
	require.Equal(t, StatusOK, b.Close(ctx, other))
}
