// Package media defines the audio output contract used by the playback
// controller and the adaptive streaming client, and provides an ffmpeg/oto
// backed implementation of it.
package media

import "errors"

// NetworkState mirrors the fetch state of the bound source
type NetworkState int

const (
	NetworkEmpty    NetworkState = iota // no source bound
	NetworkIdle                         // source bound, not fetching
	NetworkLoading                      // actively fetching
	NetworkNoSource                     // source could not be opened
)

func (s NetworkState) String() string {
	switch s {
	case NetworkEmpty:
		return "empty"
	case NetworkIdle:
		return "idle"
	case NetworkLoading:
		return "loading"
	case NetworkNoSource:
		return "no-source"
	default:
		return "unknown"
	}
}

// ReadyState describes how much decoded data is available
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// CanPlay is the answer of a stream-type capability query
type CanPlay string

const (
	CanPlayNo       CanPlay = ""
	CanPlayMaybe    CanPlay = "maybe"
	CanPlayProbably CanPlay = "probably"
)

// MIME types the player asks about
const (
	MIMEHLS  = "application/vnd.apple.mpegurl"
	MIMEMPEG = "audio/mpeg"
	MIMEAAC  = "audio/aac"
)

// Event is a sink lifecycle event
type Event string

const (
	EventPlay     Event = "play"
	EventPause    Event = "pause"
	EventError    Event = "error"
	EventStalled  Event = "stalled"
	EventWaiting  Event = "waiting"
	EventProgress Event = "progress"
)

// Listener receives sink events. err is only set for EventError.
// Listeners are invoked on a dispatch goroutine, never from inside a Sink
// method call.
type Listener func(event Event, err error)

// TimeRange is a buffered interval in seconds on the media timeline
type TimeRange struct {
	Start float64
	End   float64
}

// BufferedEnd returns the end of the last buffered range, or 0
func BufferedEnd(ranges []TimeRange) float64 {
	if len(ranges) == 0 {
		return 0
	}
	return ranges[len(ranges)-1].End
}

// BufferedSpan returns the total buffered duration
func BufferedSpan(ranges []TimeRange) float64 {
	var total float64
	for _, r := range ranges {
		total += r.End - r.Start
	}
	return total
}

var (
	// ErrNoSource is returned by Play/Load when nothing is bound
	ErrNoSource = errors.New("no source bound")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("sink closed")
	// ErrPlaybackRejected is returned when the output refuses to start
	ErrPlaybackRejected = errors.New("playback rejected")
	// ErrBufferFull is returned by SourceBuffer.Append when the byte cap is hit
	ErrBufferFull = errors.New("source buffer full")
)

// Sink is a controllable audio output
type Sink interface {
	// SetSource binds a URL; an empty URL detaches and clears the source.
	SetSource(url string)
	// Load (re)opens the bound source.
	Load() error
	Play() error
	Pause()
	Paused() bool

	Position() float64
	SetPosition(seconds float64)

	Muted() bool
	SetMuted(muted bool)
	Volume() float64
	SetVolume(volume float64)

	ReadyState() ReadyState
	NetworkState() NetworkState
	Buffered() []TimeRange
	CanPlayType(mime string) CanPlay

	// On subscribes to lifecycle events and returns an unsubscribe func.
	On(fn Listener) (cancel func())

	Close() error
}

// MediaSourceHost is implemented by sinks that accept appended segments
// instead of a URL.
type MediaSourceHost interface {
	MediaSourceSupported() bool
	// OpenSourceBuffer detaches any bound URL and returns a fresh buffer.
	// A previously opened buffer is closed.
	OpenSourceBuffer() (SourceBuffer, error)
}

// SourceBuffer accepts media segments for decoding
type SourceBuffer interface {
	// Append queues a segment of the given duration (seconds).
	Append(data []byte, duration float64) error
	// Remove drops queued media in [start, end).
	Remove(start, end float64) error
	// BufferedBytes is the size of queued, not yet decoded segments.
	BufferedBytes() int64
	EndOfStream()
	Close() error
}
