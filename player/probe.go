package player

import (
	"net/url"
	"strings"

	"somaradio/media"
)

// StreamKind is how a station's stream is bound to the sink
type StreamKind int

const (
	// StreamAdaptive streams a segmented manifest through the hls client
	StreamAdaptive StreamKind = iota
	// StreamNativeAdaptive hands the manifest URL to the sink directly
	StreamNativeAdaptive
	// StreamDirect is a progressive stream bound by URL
	StreamDirect
)

func (k StreamKind) String() string {
	switch k {
	case StreamAdaptive:
		return "adaptive"
	case StreamNativeAdaptive:
		return "native-adaptive"
	case StreamDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// IsAdaptiveURL reports whether the URL points at an m3u8 manifest
func IsAdaptiveURL(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path), ".m3u8")
}

// Probe picks the stream kind: the adaptive client when it is supported,
// then native manifest playback, then a plain URL bind.
func Probe(streamURL string, adaptiveSupported bool, canPlayType func(mime string) media.CanPlay) StreamKind {
	if !IsAdaptiveURL(streamURL) {
		return StreamDirect
	}
	if adaptiveSupported {
		return StreamAdaptive
	}
	if canPlayType != nil && canPlayType(media.MIMEHLS) != media.CanPlayNo {
		return StreamNativeAdaptive
	}
	return StreamDirect
}
