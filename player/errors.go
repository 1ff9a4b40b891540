package player

import (
	"errors"
	"fmt"

	"somaradio/hls"
	"somaradio/media"
)

var (
	// ErrLoadFailed is logged when a source could not be bound
	ErrLoadFailed = errors.New("station load failed")
	// ErrStallDetected is logged when playback stopped advancing
	ErrStallDetected = errors.New("playback stalled")
	// ErrPlaybackRejected is returned when the output refused to start
	ErrPlaybackRejected = media.ErrPlaybackRejected
	// ErrNoStation is returned by operations that need a loaded station
	ErrNoStation = errors.New("no station loaded")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("player closed")
)

// AdaptiveFatalError is an unrecoverable error reported by the adaptive
// client, tagged with its category.
type AdaptiveFatalError struct {
	Category hls.ErrorType
	Details  string
	Err      error
}

func (e *AdaptiveFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adaptive %s (%s): %v", e.Category, e.Details, e.Err)
	}
	return fmt.Sprintf("adaptive %s (%s)", e.Category, e.Details)
}

func (e *AdaptiveFatalError) Unwrap() error {
	return e.Err
}

func newAdaptiveFatalError(data *hls.ErrorData) *AdaptiveFatalError {
	return &AdaptiveFatalError{Category: data.Type, Details: data.Details, Err: data.Err}
}
