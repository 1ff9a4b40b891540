// Package hls plays segmented (m3u8) streams into a media.Sink that accepts
// appended segments.
package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"somaradio/media"
)

var (
	// ErrDestroyed is returned by every operation after Destroy
	ErrDestroyed = errors.New("hls client destroyed")
	// ErrNoSource is returned by StartLoad before LoadSource
	ErrNoSource = errors.New("no source loaded")
	// ErrNoMedia is returned when no sink is attached
	ErrNoMedia = errors.New("no media attached")
	// ErrUnsupportedMedia is returned when the sink cannot take segments
	ErrUnsupportedMedia = errors.New("media does not accept segments")
)

const bufferPollInterval = 250 * time.Millisecond

// maxSegmentBytes bounds a single segment download
const maxSegmentBytes = 16 << 20

// IsSupported reports whether m can be fed by a Client
func IsSupported(m media.Sink) bool {
	host, ok := m.(media.MediaSourceHost)
	return ok && host.MediaSourceSupported()
}

// Client loads a playlist and appends its segments to the attached sink.
// Listeners run on loader goroutines, never inside a Client method.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	httpClient *http.Client

	mu        sync.Mutex
	url       string
	sink      media.Sink
	buffer    media.SourceBuffer
	listeners map[Event][]Listener
	cancel    context.CancelFunc
	gen       uint64
	destroyed bool
}

func New(cfg Config, logger *zap.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:        cfg.withDefaults(),
		logger:     logger,
		httpClient: httpClient,
		listeners:  make(map[Event][]Listener),
	}
}

// On registers a listener for event
func (c *Client) On(event Event, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.listeners[event] = append(c.listeners[event], l)
}

// LoadSource sets the playlist URL and starts loading when media is attached
func (c *Client) LoadSource(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	c.url = url
	if c.buffer != nil {
		c.startLocked()
	}
	return nil
}

// AttachMedia binds the sink and opens a source buffer on it
func (c *Client) AttachMedia(sink media.Sink) error {
	host, ok := sink.(media.MediaSourceHost)
	if !ok || !host.MediaSourceSupported() {
		return ErrUnsupportedMedia
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}

	buffer, err := host.OpenSourceBuffer()
	if err != nil {
		return fmt.Errorf("open source buffer: %w", err)
	}
	c.stopLocked()
	c.sink = sink
	c.buffer = buffer
	if c.url != "" {
		c.startLocked()
	}
	return nil
}

// StartLoad restarts loading from the live edge. Segments still queued from
// an earlier run are dropped first.
func (c *Client) StartLoad() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.destroyed:
		return ErrDestroyed
	case c.url == "":
		return ErrNoSource
	case c.buffer == nil:
		return ErrNoMedia
	}
	c.stopLocked()
	if err := c.buffer.Remove(0, math.Inf(1)); err != nil {
		return fmt.Errorf("flush source buffer: %w", err)
	}
	c.startLocked()
	return nil
}

// StopLoad cancels all loading
func (c *Client) StopLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// RecoverMediaError reopens the source buffer and restarts loading
func (c *Client) RecoverMediaError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.destroyed:
		return ErrDestroyed
	case c.sink == nil:
		return ErrNoMedia
	}

	c.stopLocked()
	host := c.sink.(media.MediaSourceHost)
	buffer, err := host.OpenSourceBuffer()
	if err != nil {
		c.buffer = nil
		return fmt.Errorf("reopen source buffer: %w", err)
	}
	c.buffer = buffer
	if c.url != "" {
		c.startLocked()
	}
	return nil
}

// Destroy stops loading, releases the source buffer and drops listeners.
// It does not wait for loader goroutines.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.stopLocked()
	if c.buffer != nil {
		if err := c.buffer.Close(); err != nil {
			c.logger.Debug("Closing source buffer", zap.Error(err))
		}
		c.buffer = nil
	}
	c.sink = nil
	c.listeners = nil
}

func (c *Client) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Client) startLocked() {
	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen
	url, sink, buffer := c.url, c.sink, c.buffer

	g, gctx := errgroup.WithContext(ctx)
	l := &loader{
		client: c,
		gen:    gen,
		url:    url,
		sink:   sink,
		buffer: buffer,
	}
	g.Go(func() error {
		return l.run(gctx)
	})
	g.Go(func() error {
		report := func(e *ErrorData) { c.emit(gen, EventError, EventData{Error: e}) }
		return newWatchdog(c.cfg, sink, c.logger, report).run(gctx)
	})

	go func() {
		err := g.Wait()
		cancel()
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		var data *ErrorData
		if !errors.As(err, &data) {
			data = &ErrorData{Type: OtherError, Details: InternalException, Fatal: true, Err: err}
		}
		c.logger.Warn("HLS loading stopped",
			zap.String("url", url),
			zap.String("type", string(data.Type)),
			zap.String("details", data.Details),
			zap.Error(data.Err))
		c.emit(gen, EventError, EventData{Error: data})
	}()
}

// emit delivers an event unless gen has been superseded
func (c *Client) emit(gen uint64, event Event, data EventData) {
	c.mu.Lock()
	if c.destroyed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	listeners := append([]Listener(nil), c.listeners[event]...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(event, data)
	}
}

// loader is one loading run, from manifest to end of stream
type loader struct {
	client *Client
	gen    uint64
	url    string
	sink   media.Sink
	buffer media.SourceBuffer

	lastSeq uint64
	started bool
}

func (l *loader) run(ctx context.Context) error {
	c := l.client

	body, err := l.fetchRetry(ctx, l.url, c.cfg.ManifestLoadingMaxRetry)
	if err != nil {
		return l.fatal(ctx, NetworkError, ManifestLoadError, l.url, err)
	}
	m, err := parseManifest(l.url, body)
	if err != nil {
		return l.fatal(ctx, NetworkError, ManifestParsingError, l.url, err)
	}

	levelURL := l.url
	lvl := m.media
	if m.master {
		levelURL = m.variantURL
		if lvl, err = l.loadLevel(ctx, levelURL); err != nil {
			return err
		}
	}

	c.emit(l.gen, EventManifestParsed, EventData{Levels: m.levels, Live: lvl.live})

	for {
		if err := l.appendLevel(ctx, lvl); err != nil {
			return err
		}
		if !lvl.live {
			l.buffer.EndOfStream()
			c.emit(l.gen, EventBufferEOS, EventData{})
			return nil
		}

		refresh := time.Duration(lvl.targetDuration * float64(time.Second))
		if refresh <= 0 {
			refresh = c.cfg.RetryDelay
		}
		if err := sleepContext(ctx, refresh); err != nil {
			return err
		}
		if lvl, err = l.loadLevel(ctx, levelURL); err != nil {
			return err
		}
	}
}

func (l *loader) loadLevel(ctx context.Context, url string) (*level, error) {
	body, err := l.fetchRetry(ctx, url, l.client.cfg.ManifestLoadingMaxRetry)
	if err != nil {
		return nil, l.fatal(ctx, NetworkError, LevelLoadError, url, err)
	}
	lvl, err := parseLevel(url, body)
	if err != nil {
		return nil, l.fatal(ctx, NetworkError, LevelLoadError, url, err)
	}
	return lvl, nil
}

// appendLevel downloads and appends every segment of lvl not yet appended
func (l *loader) appendLevel(ctx context.Context, lvl *level) error {
	c := l.client

	start := 0
	if !l.started {
		start = lvl.startIndex(c.cfg.LiveSyncDurationCount)
	}

	for _, seg := range lvl.segments[start:] {
		if l.started && seg.seq <= l.lastSeq {
			continue
		}
		if err := l.waitForRoom(ctx); err != nil {
			return err
		}

		data, err := l.fetchRetry(ctx, seg.url, c.cfg.FragLoadingMaxRetry)
		if err != nil {
			return l.fatal(ctx, NetworkError, FragLoadError, seg.url, err)
		}
		if err := l.append(ctx, data, seg.duration); err != nil {
			return err
		}

		l.started = true
		l.lastSeq = seg.seq
		c.emit(l.gen, EventBufferAppended, EventData{Sequence: seg.seq, Duration: seg.duration})
	}
	return nil
}

// append retries while the source buffer is full
func (l *loader) append(ctx context.Context, data []byte, duration float64) error {
	reported := false
	for {
		err := l.appendCurrent(data, duration)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, media.ErrBufferFull):
			if !reported {
				reported = true
				l.client.emit(l.gen, EventError, EventData{Error: &ErrorData{
					Type: MediaError, Details: BufferFullError, Err: err,
				}})
			}
			if err := sleepContext(ctx, bufferPollInterval); err != nil {
				return err
			}
		default:
			return l.fatal(ctx, MediaError, BufferAppendError, "", err)
		}
	}
}

// appendCurrent appends only while this run is still the current one, so
// nothing lands in the buffer after StopLoad or StartLoad returns
func (l *loader) appendCurrent(data []byte, duration float64) error {
	c := l.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != l.gen {
		return context.Canceled
	}
	return l.buffer.Append(data, duration)
}

// waitForRoom blocks while the forward buffer is at its target
func (l *loader) waitForRoom(ctx context.Context) error {
	cfg := l.client.cfg
	for {
		ahead := media.BufferedEnd(l.sink.Buffered()) - l.sink.Position()
		if ahead < cfg.forwardBufferTarget() && l.buffer.BufferedBytes() < cfg.MaxBufferSize {
			return nil
		}
		if err := sleepContext(ctx, bufferPollInterval); err != nil {
			return err
		}
	}
}

func (l *loader) fatal(ctx context.Context, typ ErrorType, details, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ErrorData{Type: typ, Details: details, Fatal: true, URL: url, Err: err}
}

func (l *loader) fetchRetry(ctx context.Context, url string, retries int) ([]byte, error) {
	c := l.client
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			if err := sleepContext(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
		body, err := l.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

func (l *loader) fetch(ctx context.Context, url string) ([]byte, error) {
	c := l.client
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSegmentBytes))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
