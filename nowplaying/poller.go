// Package nowplaying polls a station's song feed and renders the current
// track and recent history.
package nowplaying

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"somaradio/model"
	"somaradio/schedule"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultHistorySize = 10
)

// Options configures a Poller. Zero values take the defaults.
type Options struct {
	Interval time.Duration
	// HistorySize bounds the rendered slice: entries [1, HistorySize) of
	// the feed become history.
	HistorySize int
	Scheduler   schedule.Scheduler
	Now         func() time.Time
}

// Poller runs one fetch-render cycle per interval for the current station.
// Only one poll timer is ever armed; results from a superseded Start or a
// cancelled request are discarded.
type Poller struct {
	logger   *zap.Logger
	fetcher  Fetcher
	renderer Renderer
	interval time.Duration
	history  int
	sched    schedule.Scheduler
	now      func() time.Time

	mu       sync.Mutex
	station  model.Station
	running  bool
	gen      uint64
	cycle    uint64
	rendered uint64
	timer    schedule.Timer
	ctx      context.Context
	cancel   context.CancelFunc
	current  Display
}

func NewPoller(logger *zap.Logger, fetcher Fetcher, renderer Renderer, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.System()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if renderer == nil {
		renderer = Renderers(nil)
	}
	return &Poller{
		logger:   logger,
		fetcher:  fetcher,
		renderer: renderer,
		interval: opts.Interval,
		history:  opts.HistorySize,
		sched:    opts.Scheduler,
		now:      opts.Now,
	}
}

// Start replaces any running poll with one for station. It fetches
// immediately and then every interval. Until the first poll lands, Current
// reports the new station with no track.
func (p *Poller) Start(station model.Station) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.station = station
	p.current = pendingDisplay(station)
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Debug("Starting playlist polling",
		zap.String("station", station.ID),
		zap.Duration("interval", p.interval))

	p.launchLocked()
	p.armLocked(p.gen)
}

// Stop cancels the poll timer and any in-flight request. Safe to call
// repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Current returns the most recently rendered display
func (p *Poller) Current() Display {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Poller) stopLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
}

func (p *Poller) armLocked(gen uint64) {
	p.timer = p.sched.AfterFunc(p.interval, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.running || gen != p.gen {
			return
		}
		p.launchLocked()
		p.armLocked(gen)
	})
}

// launchLocked starts one fetch-render cycle in the background
func (p *Poller) launchLocked() {
	p.cycle++
	go p.run(p.ctx, p.gen, p.cycle, p.station)
}

func (p *Poller) run(ctx context.Context, gen, cycle uint64, station model.Station) {
	d := p.poll(ctx, station)

	p.mu.Lock()
	if gen != p.gen || ctx.Err() != nil || cycle < p.rendered {
		p.mu.Unlock()
		return
	}
	p.rendered = cycle
	p.current = d
	p.mu.Unlock()

	p.renderer.Render(d)
}

func (p *Poller) poll(ctx context.Context, station model.Station) Display {
	tracks, err := p.fetch(ctx, station)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Failed to refresh playlist",
				zap.String("station", station.ID),
				zap.String("url", station.PlaylistURL),
				zap.Error(err))
		}
		return failureDisplay(station, err, p.now())
	}
	return successDisplay(station, tracks, p.history, p.now())
}

func (p *Poller) fetch(ctx context.Context, station model.Station) ([]model.Track, error) {
	data, err := p.fetcher.Fetch(ctx, station.PlaylistURL)
	if err != nil {
		return nil, wrapFetch(err)
	}
	return ParseFeed(data)
}
