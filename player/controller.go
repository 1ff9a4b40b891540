package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"somaradio/hls"
	"somaradio/media"
	"somaradio/model"
	"somaradio/schedule"
)

// State is the lifecycle state of a playback session
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateRecovering
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRecovering:
		return "recovering"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the controller for renderers
type Status struct {
	Station   model.Station `json:"station"`
	Kind      string        `json:"kind"`
	State     string        `json:"state"`
	Loading   bool          `json:"loading"`
	Playing   bool          `json:"playing"`
	Muted     bool          `json:"muted"`
	Volume    float64       `json:"volume"`
	SessionID string        `json:"session_id,omitempty"`
}

// session is one station attachment. Every callback it arms carries id and
// is ignored once the session is no longer current.
type session struct {
	id         uuid.UUID
	station    model.Station
	kind       StreamKind
	client     AdaptiveClient
	loading    bool
	wasPlaying bool
	state      State

	unsubscribe func()

	healthTimer   schedule.Timer
	pressureTimer schedule.Timer
	reloadTimer   schedule.Timer
	recheckTimer  schedule.Timer

	stallPosition float64
}

func (s *session) stopTimers() {
	schedule.StopAll(s.healthTimer, s.pressureTimer, s.reloadTimer, s.recheckTimer)
	s.healthTimer = nil
	s.pressureTimer = nil
	s.reloadTimer = nil
	s.recheckTimer = nil
}

// Controller owns the single playback session and the now-playing poller
type Controller struct {
	logger    *zap.Logger
	sink      media.Sink
	newClient ClientFactory
	poller    NowPlaying
	sched     schedule.Scheduler
	opts      Options

	mu      sync.Mutex
	session *session
	muted   bool
	volume  float64
	closed  bool
}

var _ Player = (*Controller)(nil)

// NewController wires a controller to its sink. newClient may be nil when
// segmented playback is not wanted; poller may be nil too.
func NewController(logger *zap.Logger, sink media.Sink, newClient ClientFactory, poller NowPlaying, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		logger:    logger,
		sink:      sink,
		newClient: newClient,
		poller:    poller,
		sched:     opts.Scheduler,
		opts:      opts,
		muted:     opts.Muted,
		volume:    clamp(opts.InitialVolume),
	}
	sink.SetVolume(c.volume)
	sink.SetMuted(c.muted)
	return c
}

// NewHLSClientFactory builds hls clients with the given bounded config
func NewHLSClientFactory(logger *zap.Logger, cfg hls.Config) ClientFactory {
	return func() AdaptiveClient {
		return hls.New(cfg, logger.Named("hls"), nil)
	}
}

// LoadStation tears down the current session and attaches station
func (c *Controller) LoadStation(station model.Station) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.loadLocked(station)
}

// Reload rebuilds the session for the current station
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.session == nil {
		return ErrNoStation
	}
	return c.loadLocked(c.session.station)
}

func (c *Controller) loadLocked(station model.Station) error {
	wasPlaying := c.opts.Autoplay
	if old := c.session; old != nil {
		if old.loading {
			wasPlaying = old.wasPlaying
		} else {
			wasPlaying = !c.sink.Paused()
		}
		c.teardownLocked(old)
	}

	s := &session{
		id:         uuid.New(),
		station:    station,
		loading:    true,
		wasPlaying: wasPlaying,
		state:      StateLoading,
	}
	c.session = s

	s.kind = Probe(station.StreamURL, c.adaptiveSupported(), c.sink.CanPlayType)
	c.logger.Info("Loading station",
		zap.String("station", station.ID),
		zap.String("url", station.StreamURL),
		zap.Stringer("kind", s.kind),
		zap.Bool("resume", wasPlaying),
		zap.String("session", s.id.String()))

	err := c.bindLocked(s)
	if err != nil {
		c.logger.Error("Failed to load station", zap.String("station", station.ID), zap.Error(err))
		c.scheduleReloadLocked(s, err)
	}

	if c.poller != nil {
		c.poller.Start(station)
	}
	c.armHealthLocked(s)
	c.armPressureLocked(s)
	return err
}

func (c *Controller) adaptiveSupported() bool {
	return c.newClient != nil && hls.IsSupported(c.sink)
}

func (c *Controller) bindLocked(s *session) error {
	id := s.id
	s.unsubscribe = c.sink.On(func(event media.Event, err error) {
		c.onSinkEvent(id, event, err)
	})

	if s.kind == StreamAdaptive {
		client := c.newClient()
		s.client = client
		client.On(hls.EventManifestParsed, func(hls.Event, hls.EventData) {
			c.onManifestParsed(id)
		})
		client.On(hls.EventError, func(_ hls.Event, data hls.EventData) {
			c.onAdaptiveError(id, data.Error)
		})
		if err := client.AttachMedia(c.sink); err != nil {
			return fmt.Errorf("%w: attach media: %w", ErrLoadFailed, err)
		}
		if err := client.LoadSource(s.station.StreamURL); err != nil {
			return fmt.Errorf("%w: load source: %w", ErrLoadFailed, err)
		}
		return nil
	}

	c.sink.SetSource(s.station.StreamURL)
	if err := c.sink.Load(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	c.markReadyLocked(s)
	return nil
}

// teardownLocked releases everything the session holds
func (c *Controller) teardownLocked(s *session) {
	s.state = StateTornDown
	s.stopTimers()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	c.sink.Pause()
	if s.client != nil {
		s.client.Destroy()
		s.client = nil
	}
	c.sink.SetSource("")
}

func (c *Controller) markReadyLocked(s *session) {
	s.loading = false
	s.state = StatePaused
	if !s.wasPlaying {
		return
	}
	if err := c.sink.Play(); err != nil {
		c.logPlayError(s, err)
		return
	}
	s.state = StatePlaying
}

func (c *Controller) logPlayError(s *session, err error) {
	if errors.Is(err, ErrPlaybackRejected) {
		c.logger.Warn("Playback was rejected", zap.String("station", s.station.ID), zap.Error(err))
		return
	}
	c.logger.Error("Failed to start playback", zap.String("station", s.station.ID), zap.Error(err))
}

// current returns the live session if it matches id
func (c *Controller) current(id uuid.UUID) *session {
	if c.closed || c.session == nil || c.session.id != id {
		return nil
	}
	return c.session
}

func (c *Controller) onManifestParsed(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil {
		return
	}
	switch {
	case s.loading:
		c.markReadyLocked(s)
	case s.state == StateRecovering:
		s.state = c.playbackState()
	}
}

func (c *Controller) onSinkEvent(id uuid.UUID, event media.Event, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil || s.loading {
		return
	}

	switch event {
	case media.EventPlay, media.EventPause:
		if s.state != StateRecovering {
			s.state = c.playbackState()
		}
	case media.EventError:
		c.logger.Warn("Audio output error", zap.String("station", s.station.ID), zap.Error(err))
		if s.client != nil {
			c.recoverMediaLocked(s, err)
			return
		}
		s.state = StateRecovering
		c.scheduleReloadLocked(s, fmt.Errorf("%w: %w", ErrLoadFailed, err))
	}
}

func (c *Controller) playbackState() State {
	if c.sink.Paused() {
		return StatePaused
	}
	return StatePlaying
}

// TogglePlay starts or stops playback. Stopping stops segment loading and
// rewinds, so the next play resumes at the live edge. Ignored while loading.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if c.closed || s == nil || s.loading {
		return nil
	}

	if c.sink.Paused() {
		if s.client != nil {
			if err := s.client.StartLoad(); err != nil {
				c.logger.Warn("Failed to restart loading", zap.Error(err))
			}
		}
		if err := c.sink.Play(); err != nil {
			c.logPlayError(s, err)
			return err
		}
		s.state = StatePlaying
		return nil
	}

	// Stopping drops everything buffered and any pending stall recheck. The
	// next play starts loading again from the live edge.
	c.sink.Pause()
	if s.client != nil {
		s.client.StopLoad()
	}
	c.sink.SetPosition(0)
	if s.recheckTimer != nil {
		s.recheckTimer.Stop()
		s.recheckTimer = nil
	}
	s.state = StatePaused
	return nil
}

// ToggleMute flips the muted flag
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = !c.muted
	c.sink.SetMuted(c.muted)
}

// SetVolume clamps volume to [0, 1] and applies it to the sink
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clamp(volume)
	c.sink.SetVolume(c.volume)
}

// Volume returns the current volume in [0, 1]
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Status returns a snapshot of the session for display and the control API
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:  StateIdle.String(),
		Muted:  c.muted,
		Volume: c.volume,
	}
	s := c.session
	if s == nil {
		return st
	}
	st.Station = s.station
	st.Kind = s.kind.String()
	st.State = s.state.String()
	st.Loading = s.loading
	st.Playing = !s.loading && !c.sink.Paused()
	st.SessionID = s.id.String()
	return st
}

// Close tears down the session and stops polling. The sink is left open.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.session != nil {
		c.teardownLocked(c.session)
		c.session = nil
	}
	if c.poller != nil {
		c.poller.Stop()
	}
	return nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
