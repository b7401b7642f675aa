package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-huemask/internal/log"
	"github.com/teslashibe/go-huemask/pkg/capture"
	"github.com/teslashibe/go-huemask/pkg/sink"
)

func solidBytes(b, g, r byte, w, h int) []byte {
	return bytes.Repeat([]byte{b, g, r}, w*h)
}

func newTestDriver(t *testing.T, src capture.Source, opts ...Option) (*Driver, *sink.RecordingWriter) {
	t.Helper()
	rec := sink.NewRecordingWriter(sink.WriterConfig{})
	opts = append([]Option{WithWriterOpener(rec.Opener()), WithLogger(log.Discard())}, opts...)
	d, err := New(DefaultConfig(), src, opts...)
	require.NoError(t, err)
	return d, rec
}

func TestRun_BlueFramesPassThrough(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithColor(255, 0, 0), capture.WithLimit(10))
	d, rec := newTestDriver(t, src)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopEndOfStream, stats.StopReason)
	assert.Equal(t, 10, stats.FramesRead)
	assert.Equal(t, 10, stats.FramesWritten)
	require.Equal(t, 10, rec.Frames())

	want := solidBytes(255, 0, 0, 4, 4)
	for i := 0; i < rec.Frames(); i++ {
		assert.Equal(t, want, rec.Frame(i), "frame %d", i)
	}
}

func TestRun_RedFramesAreBlackedOut(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithColor(0, 0, 255), capture.WithLimit(10))
	d, rec := newTestDriver(t, src)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, rec.Frames())

	zero := make([]byte, 4*4*3)
	for i := 0; i < rec.Frames(); i++ {
		assert.Equal(t, zero, rec.Frame(i), "frame %d", i)
	}
}

func TestRun_EndOfStreamMidRun(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithEndAt(5))
	d, rec := newTestDriver(t, src)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopEndOfStream, stats.StopReason)
	assert.Equal(t, 4, rec.Frames())
	assert.Equal(t, 4, stats.FramesWritten)
}

func TestRun_FirstReadFailsReleasesHandles(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithEndAt(1))
	display := sink.NewRecordingDisplay()
	d, rec := newTestDriver(t, src, WithDisplay(display))

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, rec.Frames())
	assert.Equal(t, 0, stats.FramesRead)
	assert.Equal(t, 1, src.Closes(), "source must be closed exactly once")
	assert.Equal(t, 1, rec.Closes(), "writer must be closed exactly once")
	assert.Equal(t, 1, display.Closes(), "display must be closed exactly once")
}

func TestRun_ZeroFPSUsesFallback(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithFPS(0), capture.WithLimit(1))
	d, rec := newTestDriver(t, src)

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(20), rec.Config().FPS)
	assert.True(t, stats.FPSFallback)
}

func TestRun_WriterUsesSourceGeometry(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(8, 6), capture.WithFPS(25), capture.WithLimit(1))
	d, rec := newTestDriver(t, src)

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	cfg := rec.Config()
	assert.Equal(t, sink.WriterConfig{Path: "video_with_mask.avi", Codec: "XVID", FPS: 25, Width: 8, Height: 6}, cfg)
}

func TestRun_QuitKey(t *testing.T) {
	polls := 0
	quit := sink.QuitFunc(func() bool {
		polls++
		return polls == 3
	})
	src := capture.NewMockSource(capture.WithSize(4, 4))
	d, rec := newTestDriver(t, src, WithQuit(quit))

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopQuit, stats.StopReason)
	// The frame read in the quitting iteration is still written.
	assert.Equal(t, 3, stats.FramesRead)
	assert.Equal(t, 3, rec.Frames())
	assert.Equal(t, 1, src.Closes())
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := capture.NewMockSource(capture.WithSize(4, 4))
	d, rec := newTestDriver(t, src, WithObserver(func(s Stats) {
		if s.FramesWritten == 2 {
			cancel()
		}
	}))

	stats, err := d.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StopCanceled, stats.StopReason)
	assert.Equal(t, 2, rec.Frames())
}

func TestRun_WriterFailureIsFatal(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4))
	boom := errors.New("disk full")
	rec := sink.NewRecordingWriter(sink.WriterConfig{})
	rec.FailAfter = 2
	rec.Err = boom

	d, err := New(DefaultConfig(), src, WithWriterOpener(rec.Opener()), WithLogger(log.Discard()))
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StopWriterFailed, stats.StopReason)
	assert.True(t, stats.StopReason.Failed())
	assert.Equal(t, 2, stats.FramesWritten)
	assert.Equal(t, 3, stats.FramesRead)
	assert.Equal(t, 1, src.Closes())
	assert.Equal(t, 1, rec.Closes())
}

func TestRun_WriterOpenFailureClosesSource(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4))
	open := func(sink.WriterConfig) (sink.Writer, error) {
		return nil, sink.ErrUnsupportedCodec
	}
	d, err := New(DefaultConfig(), src, WithWriterOpener(open), WithLogger(log.Discard()))
	require.NoError(t, err)

	stats, err := d.Run(context.Background())
	require.ErrorIs(t, err, sink.ErrUnsupportedCodec)

	assert.Equal(t, StopWriterFailed, stats.StopReason)
	assert.Equal(t, 0, src.Reads())
	assert.Equal(t, 1, src.Closes())
}

func TestRun_ReadyBeforeFirstFrame(t *testing.T) {
	// A camera that never delivers a frame still reports ready.
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithEndAt(1))

	var calls, readsAtReady int
	var readyStats Stats
	d, rec := newTestDriver(t, src, WithReady(func(s Stats) {
		calls++
		readsAtReady = src.Reads()
		readyStats = s
	}))

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, readsAtReady)
	assert.True(t, readyStats.Running)
	assert.Equal(t, 0, readyStats.FramesRead)
	assert.Equal(t, 0, rec.Frames())
}

func TestRun_NoReadyWhenWriterOpenFails(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4))
	open := func(sink.WriterConfig) (sink.Writer, error) {
		return nil, sink.ErrPathUnwritable
	}
	called := false
	d, err := New(DefaultConfig(), src,
		WithWriterOpener(open),
		WithLogger(log.Discard()),
		WithReady(func(Stats) { called = true }),
	)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, sink.ErrPathUnwritable)
	assert.False(t, called)
}

func TestRun_DisplayErrorsAreNotFatal(t *testing.T) {
	display := sink.NewRecordingDisplay()
	display.Err = sink.ErrNoDisplay
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithLimit(5))
	d, rec := newTestDriver(t, src, WithDisplay(display))

	stats, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rec.Frames())
	assert.Equal(t, 10, stats.DisplayErrors)
	assert.Equal(t, 5, display.Shows("original"))
	assert.Equal(t, 5, display.Shows("masked"))

	order := display.Order()
	require.Len(t, order, 10)
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, "original", order[i])
		assert.Equal(t, "masked", order[i+1])
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithLimit(1))
	d, _ := newTestDriver(t, src)

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Equal(t, 1, src.Closes())
}

func TestSnapshot(t *testing.T) {
	src := capture.NewMockSource(capture.WithSize(4, 4), capture.WithLimit(3))
	d, _ := newTestDriver(t, src)

	before := d.Snapshot()
	assert.NotEmpty(t, before.RunID)
	assert.False(t, before.Running)
	assert.Equal(t, "mock", before.Source)

	var seen []int
	d.observe = func(s Stats) {
		assert.True(t, s.Running)
		seen = append(seen, s.FramesWritten)
	}
	after, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, before.RunID, after.RunID)
	assert.False(t, after.Running)
	assert.False(t, after.Stopped.IsZero())
	assert.Equal(t, after, d.Snapshot())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Codec = "H264X"
	_, err = New(cfg, capture.NewMockSource())
	assert.Error(t, err)
}
