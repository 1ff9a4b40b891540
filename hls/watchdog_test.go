package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"somaradio/media"
)

func TestWatchdogNudgesThenFails(t *testing.T) {
	sink := &fakeSink{position: 5, ranges: []media.TimeRange{{Start: 0, End: 20}}}
	var reported []*ErrorData
	w := newWatchdog(DefaultConfig(), sink, zap.NewNop(), func(e *ErrorData) {
		reported = append(reported, e)
	})

	require.Nil(t, w.tick(), "first tick only records the position")

	// The fake never advances on its own.
	for i := 1; i <= 3; i++ {
		require.Nil(t, w.tick())
	}
	require.Len(t, reported, 3)
	for _, e := range reported {
		assert.Equal(t, BufferNudgeOnStall, e.Details)
		assert.False(t, e.Fatal)
	}
	assert.Len(t, sink.seeks, 3)

	err := w.tick()
	require.NotNil(t, err)
	assert.True(t, err.Fatal)
}

func TestWatchdogResetsAfterProgress(t *testing.T) {
	sink := &fakeSink{position: 5, ranges: []media.TimeRange{{Start: 0, End: 20}}}
	w := newWatchdog(DefaultConfig(), sink, zap.NewNop(), func(*ErrorData) {})

	w.tick()
	w.tick()
	assert.Equal(t, 1, w.retries)

	sink.SetPosition(9)
	w.tick()
	assert.Equal(t, 0, w.retries)
}

func TestWatchdogFatalAfterMaxRetries(t *testing.T) {
	sink := &fakeSink{position: 5, ranges: []media.TimeRange{{Start: 0, End: 20}}}
	w := newWatchdog(DefaultConfig(), sink, zap.NewNop(), func(*ErrorData) {})
	w.started = true
	w.last = 5
	w.retries = w.cfg.NudgeMaxRetry

	err := w.tick()
	require.NotNil(t, err)
	assert.True(t, err.Fatal)
	assert.Equal(t, BufferStalledError, err.Details)
	assert.Equal(t, MediaError, err.Type)
}

func TestWatchdogSkipsSmallHole(t *testing.T) {
	sink := &fakeSink{position: 4, ranges: []media.TimeRange{{Start: 0, End: 4}, {Start: 4.3, End: 20}}}
	var reported []*ErrorData
	w := newWatchdog(DefaultConfig(), sink, zap.NewNop(), func(e *ErrorData) {
		reported = append(reported, e)
	})

	w.tick()
	require.Nil(t, w.tick())
	assert.InDelta(t, 4.3, sink.Position(), 1e-9)
	require.Len(t, reported, 1)
	assert.Equal(t, BufferSeekOverHole, reported[0].Details)
}

func TestWatchdogIgnoresPausedPlayback(t *testing.T) {
	sink := &fakeSink{position: 5, paused: true, ranges: []media.TimeRange{{Start: 0, End: 20}}}
	w := newWatchdog(DefaultConfig(), sink, zap.NewNop(), func(*ErrorData) {
		t.Fatal("paused playback must not be reported")
	})

	for i := 0; i < 5; i++ {
		require.Nil(t, w.tick())
	}
	assert.Empty(t, sink.seeks)
}
