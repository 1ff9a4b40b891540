package hls

import "fmt"

// Event names a client notification
type Event string

const (
	EventManifestParsed Event = "manifestParsed"
	EventError          Event = "error"
	EventBufferAppended Event = "bufferAppended"
	EventBufferEOS      Event = "bufferEOS"
)

// ErrorType is the category of a reported error
type ErrorType string

const (
	NetworkError ErrorType = "networkError"
	MediaError   ErrorType = "mediaError"
	OtherError   ErrorType = "otherError"
)

// Error details
const (
	ManifestLoadError    = "manifestLoadError"
	ManifestParsingError = "manifestParsingError"
	LevelLoadError       = "levelLoadError"
	FragLoadError        = "fragLoadError"
	BufferAppendError    = "bufferAppendError"
	BufferFullError      = "bufferFullError"
	BufferStalledError   = "bufferStalledError"
	BufferNudgeOnStall   = "bufferNudgeOnStall"
	BufferSeekOverHole   = "bufferSeekOverHole"
	AttachMediaError     = "attachMediaError"
	InternalException    = "internalException"
)

// ErrorData describes a reported error
type ErrorData struct {
	Type    ErrorType
	Details string
	Fatal   bool
	URL     string
	Err     error
}

func (e *ErrorData) Error() string {
	severity := "non-fatal"
	if e.Fatal {
		severity = "fatal"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s (%s): %v", severity, e.Type, e.Details, e.Err)
	}
	return fmt.Sprintf("%s %s (%s)", severity, e.Type, e.Details)
}

func (e *ErrorData) Unwrap() error {
	return e.Err
}

// EventData is the payload passed to listeners
type EventData struct {
	// Levels is the number of variants found (EventManifestParsed).
	Levels int
	// Live reports whether the playlist has no end (EventManifestParsed).
	Live bool
	// Sequence and Duration describe an appended segment.
	Sequence uint64
	Duration float64
	// Error is set for EventError.
	Error *ErrorData
}

// Listener receives client events
type Listener func(event Event, data EventData)
