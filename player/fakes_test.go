package player

import (
	"errors"
	"sync"

	"somaradio/hls"
	"somaradio/media"
	"somaradio/model"
)

// fakeSink is a media.Sink driven entirely by the test
type fakeSink struct {
	mu        sync.Mutex
	src       string
	paused    bool
	position  float64
	ranges    []media.TimeRange
	network   media.NetworkState
	muted     bool
	volume    float64
	mse       bool
	canPlay   media.CanPlay
	loadErr   error
	playErr   error
	loads     int
	plays     int
	listeners map[int]media.Listener
	nextID    int
}

func newFakeSink(mse bool) *fakeSink {
	return &fakeSink{paused: true, mse: mse, canPlay: media.CanPlayProbably, listeners: map[int]media.Listener{}}
}

func (s *fakeSink) SetSource(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = url
	s.paused = true
	s.position = 0
	s.network = media.NetworkIdle
	if url == "" {
		s.network = media.NetworkEmpty
	}
}

func (s *fakeSink) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.loadErr
}

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	if s.playErr != nil {
		return s.playErr
	}
	s.paused = false
	return nil
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *fakeSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeSink) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *fakeSink) SetPosition(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
}

func (s *fakeSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *fakeSink) SetMuted(m bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = m
}

func (s *fakeSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *fakeSink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *fakeSink) ReadyState() media.ReadyState { return media.HaveEnoughData }

func (s *fakeSink) NetworkState() media.NetworkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

func (s *fakeSink) Buffered() []media.TimeRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ranges
}

func (s *fakeSink) CanPlayType(string) media.CanPlay { return s.canPlay }

func (s *fakeSink) On(fn media.Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) MediaSourceSupported() bool { return s.mse }

func (s *fakeSink) OpenSourceBuffer() (media.SourceBuffer, error) {
	return nil, errors.New("not used by the fake client")
}

func (s *fakeSink) emit(event media.Event, err error) {
	s.mu.Lock()
	listeners := make([]media.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(event, err)
	}
}

func (s *fakeSink) set(fn func(s *fakeSink)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// fakeClient records calls and lets the test fire client events
type fakeClient struct {
	mu         sync.Mutex
	source     string
	attached   bool
	destroyed  bool
	startLoads int
	stopLoads  int
	recovers   int
	startErr   error
	recoverErr error
	listeners  map[hls.Event][]hls.Listener
}

func (f *fakeClient) LoadSource(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = url
	return nil
}

func (f *fakeClient) AttachMedia(media.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = true
	return nil
}

func (f *fakeClient) StartLoad() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startLoads++
	return f.startErr
}

func (f *fakeClient) StopLoad() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLoads++
}

func (f *fakeClient) RecoverMediaError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recovers++
	return f.recoverErr
}

func (f *fakeClient) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.listeners = nil
}

func (f *fakeClient) On(event hls.Event, l hls.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = map[hls.Event][]hls.Listener{}
	}
	f.listeners[event] = append(f.listeners[event], l)
}

// fire invokes listeners even after Destroy, like a callback already in
// flight when the session was replaced.
func (f *fakeClient) fire(event hls.Event, data hls.EventData, listeners []hls.Listener) {
	for _, l := range listeners {
		l(event, data)
	}
}

func (f *fakeClient) snapshot(event hls.Event) []hls.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hls.Listener(nil), f.listeners[event]...)
}

func (f *fakeClient) ready() {
	f.fire(hls.EventManifestParsed, hls.EventData{Levels: 1, Live: true}, f.snapshot(hls.EventManifestParsed))
}

func (f *fakeClient) fail(typ hls.ErrorType, fatal bool) {
	data := hls.EventData{Error: &hls.ErrorData{Type: typ, Details: "test", Fatal: fatal}}
	f.fire(hls.EventError, data, f.snapshot(hls.EventError))
}

type clientFactory struct {
	mu      sync.Mutex
	clients []*fakeClient
}

func (cf *clientFactory) New() AdaptiveClient {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	c := &fakeClient{}
	cf.clients = append(cf.clients, c)
	return c
}

func (cf *clientFactory) count() int {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	return len(cf.clients)
}

func (cf *clientFactory) last() *fakeClient {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	return cf.clients[len(cf.clients)-1]
}

type fakePoller struct {
	mu      sync.Mutex
	started []model.Station
	stops   int
}

func (p *fakePoller) Start(station model.Station) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, station)
}

func (p *fakePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}
