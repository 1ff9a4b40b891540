package player

import (
	"somaradio/hls"
	"somaradio/media"
	"somaradio/model"
)

// Player is the playback surface driven by the UI and the control server
type Player interface {
	LoadStation(station model.Station) error
	TogglePlay() error
	ToggleMute()
	Reload() error

	SetVolume(volume float64)
	Volume() float64

	Status() Status
	Close() error
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks somaradio/player AdaptiveClient,NowPlaying

// AdaptiveClient is the segmented-stream client a session drives.
// *hls.Client implements it.
type AdaptiveClient interface {
	LoadSource(url string) error
	AttachMedia(sink media.Sink) error
	StartLoad() error
	StopLoad()
	RecoverMediaError() error
	Destroy()
	On(event hls.Event, listener hls.Listener)
}

// ClientFactory builds a fresh client for each adaptive session
type ClientFactory func() AdaptiveClient

// NowPlaying is the feed poller restarted on every station switch
type NowPlaying interface {
	Start(station model.Station)
	Stop()
}
