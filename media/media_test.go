package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPCMBufferReadWrite(t *testing.T) {
	b := newPCMBuffer(16)

	n, err := b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 8, b.Len())

	p := make([]byte, 4)
	n, err = b.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, p)
	assert.Equal(t, int64(4), b.Consumed())

	assert.Equal(t, 4, b.Skip(6), "skip is frame aligned")
	assert.Equal(t, int64(8), b.Consumed())
	assert.Equal(t, 0, b.Len())

	b.Close()
	_, err = b.Read(p)
	assert.ErrorIs(t, err, io.EOF)
	_, err = b.Write([]byte{1})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPCMBufferWriteBlocksUntilRead(t *testing.T) {
	b := newPCMBuffer(4)
	done := make(chan struct{})

	go func() {
		_, _ = b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("write should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	p := make([]byte, 8)
	_, err := b.Read(p)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write did not resume after read")
	}
	assert.Equal(t, int64(8), b.Received())
}

func TestPCMBufferReset(t *testing.T) {
	b := newPCMBuffer(64)
	_, _ = b.Write(make([]byte, 32))
	_, _ = b.Read(make([]byte, 8))

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), b.Consumed())
}

func TestSegmentQueue(t *testing.T) {
	q := newSegmentQueue(10)

	require.NoError(t, q.Append([]byte("abcd"), 2))
	require.NoError(t, q.Append([]byte("efgh"), 2))
	assert.ErrorIs(t, q.Append([]byte("ijk"), 1), ErrBufferFull)
	assert.Equal(t, int64(8), q.BufferedBytes())
	assert.InDelta(t, 4.0, q.QueuedSeconds(), 1e-9)

	p := make([]byte, 3)
	n, err := q.readContext(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(p[:n]))
	assert.InDelta(t, 2.0, q.QueuedSeconds(), 1e-9)

	require.NoError(t, q.Remove(2, 4))
	assert.Equal(t, int64(1), q.BufferedBytes())

	q.EndOfStream()
	assert.False(t, q.Ended())
	n, err = q.readContext(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "d", string(p[:n]))

	_, err = q.readContext(context.Background(), p)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, q.Ended())
	assert.Error(t, q.Append([]byte("x"), 1))
}

func TestSegmentQueueReadCancelled(t *testing.T) {
	q := newSegmentQueue(0)
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := q.readContext(ctx, make([]byte, 4))
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("read did not return after cancel")
	}
}

func TestVolumeReaderAlignsFrames(t *testing.T) {
	// 6 bytes: one full frame plus a partial one.
	src := bytes.NewReader([]byte{0x10, 0x00, 0x10, 0x00, 0x20, 0x00})
	vr := newVolumeReader(src, func() float64 { return 0.5 })

	p := make([]byte, 8)
	n, err := vr.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0x08, 0x00, 0x08, 0x00}, p[:4])
	assert.Len(t, vr.residue, 2)
}

func TestApplyVolumeMute(t *testing.T) {
	p := []byte{0xff, 0x7f, 0x00, 0x80}
	applyVolume(p, 0)
	assert.Equal(t, []byte{0, 0, 0, 0}, p)
}

func TestDispatcherDeliversAsynchronously(t *testing.T) {
	d := newDispatcher(zap.NewNop())
	defer d.close()

	got := make(chan Event, 2)
	cancel := d.subscribe(func(e Event, err error) {
		got <- e
	})

	d.emit(EventPlay, nil)
	select {
	case e := <-got:
		assert.Equal(t, EventPlay, e)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	d.emit(EventPause, nil)
	select {
	case e := <-got:
		t.Fatalf("unsubscribed listener received %s", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFFmpegSinkStateWithoutPlayback(t *testing.T) {
	s := NewFFmpegSink(zap.NewNop(), "/opt/ffmpeg/bin/ffmpeg", 1.5)
	defer s.Close()

	assert.Equal(t, 1.0, s.Volume(), "volume is clamped")
	assert.True(t, s.Paused())
	assert.Equal(t, NetworkEmpty, s.NetworkState())
	assert.ErrorIs(t, s.Play(), ErrNoSource)

	s.SetSource("https://ice1.somafm.com/cliqhop-128-aac")
	assert.Equal(t, NetworkIdle, s.NetworkState())
	require.NoError(t, s.Load())
	assert.Nil(t, s.Buffered())

	s.SetMuted(true)
	assert.True(t, s.Muted())
	assert.Equal(t, 0.0, s.effectiveVolume())
	s.SetMuted(false)
	s.SetVolume(0.25)
	assert.Equal(t, 0.25, s.effectiveVolume())

	assert.Equal(t, CanPlayMaybe, s.CanPlayType(MIMEHLS))
	assert.Equal(t, CanPlayProbably, s.CanPlayType(MIMEAAC))
	assert.Equal(t, CanPlayNo, s.CanPlayType("video/webm"))
	assert.True(t, s.MediaSourceSupported())

	s.SetSource("")
	assert.Equal(t, NetworkEmpty, s.NetworkState())
	assert.ErrorIs(t, s.Load(), ErrNoSource)
}

func TestFFmpegSinkSourceBuffer(t *testing.T) {
	s := NewFFmpegSink(zap.NewNop(), "/opt/ffmpeg/bin/ffmpeg", 1)
	defer s.Close()

	sb, err := s.OpenSourceBuffer()
	require.NoError(t, err)
	require.NoError(t, sb.Append([]byte("segment-1"), 6))
	require.NoError(t, sb.Append([]byte("segment-2"), 6))

	ranges := s.Buffered()
	require.Len(t, ranges, 1)
	assert.InDelta(t, 12.0, BufferedEnd(ranges), 1e-9)
	assert.Equal(t, HaveMetadata, s.ReadyState())

	// Moving back drops queued media so playback resumes at the live edge.
	s.SetPosition(0)
	assert.Equal(t, 0.0, s.Position())
	assert.Nil(t, s.Buffered())

	// A new buffer closes the previous one.
	_, err = s.OpenSourceBuffer()
	require.NoError(t, err)
	assert.True(t, errors.Is(sb.Append([]byte("late"), 1), ErrClosed))
}

func TestFFmpegSinkClosed(t *testing.T) {
	s := NewFFmpegSink(zap.NewNop(), "/opt/ffmpeg/bin/ffmpeg", 1)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s.SetSource("http://example.com/stream")
	assert.ErrorIs(t, s.Play(), ErrClosed)
	_, err := s.OpenSourceBuffer()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBufferedHelpers(t *testing.T) {
	ranges := []TimeRange{{0, 4}, {6, 10}}
	assert.Equal(t, 10.0, BufferedEnd(ranges))
	assert.Equal(t, 8.0, BufferedSpan(ranges))
	assert.Equal(t, 0.0, BufferedEnd(nil))
}
