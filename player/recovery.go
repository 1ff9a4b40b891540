package player

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"somaradio/hls"
	"somaradio/media"
)

// onAdaptiveError applies tiered recovery: cheap in-place repair for
// network and media errors, a delayed full reload for everything else.
func (c *Controller) onAdaptiveError(id uuid.UUID, data *hls.ErrorData) {
	if data == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil || s.client == nil {
		return
	}

	if !data.Fatal {
		c.logger.Debug("Adaptive stream warning",
			zap.String("station", s.station.ID),
			zap.String("type", string(data.Type)),
			zap.String("details", data.Details),
			zap.Error(data.Err))
		return
	}

	fatal := newAdaptiveFatalError(data)
	c.logger.Warn("Adaptive stream failed, recovering",
		zap.String("station", s.station.ID),
		zap.Error(fatal))

	switch data.Type {
	case hls.NetworkError:
		s.state = StateRecovering
		if err := s.client.StartLoad(); err != nil {
			c.scheduleReloadLocked(s, fmt.Errorf("%w: restart loading: %w", fatal, err))
		}
	case hls.MediaError:
		c.recoverMediaLocked(s, fatal)
	default:
		s.state = StateRecovering
		c.scheduleReloadLocked(s, fatal)
	}
}

func (c *Controller) recoverMediaLocked(s *session, cause error) {
	s.state = StateRecovering
	if err := s.client.RecoverMediaError(); err != nil {
		c.scheduleReloadLocked(s, fmt.Errorf("%w: recover media: %w", cause, err))
	}
}

// scheduleReloadLocked arms the delayed full reload unless one is pending
func (c *Controller) scheduleReloadLocked(s *session, cause error) {
	if s.reloadTimer != nil {
		return
	}
	c.logger.Info("Reloading station after delay",
		zap.String("station", s.station.ID),
		zap.Duration("delay", c.opts.ReloadDelay),
		zap.Error(cause))

	id := s.id
	s.reloadTimer = c.sched.AfterFunc(c.opts.ReloadDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		s := c.current(id)
		if s == nil {
			return
		}
		s.reloadTimer = nil
		_ = c.loadLocked(s.station)
	})
}

func (c *Controller) armHealthLocked(s *session) {
	id := s.id
	s.healthTimer = c.sched.AfterFunc(c.opts.HealthCheckInterval, func() {
		c.healthCheck(id)
	})
}

// healthCheck reloads a session whose source is gone and probes for a
// stall when far more is buffered than played.
func (c *Controller) healthCheck(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil {
		return
	}
	c.armHealthLocked(s)

	if s.loading || s.recheckTimer != nil || s.reloadTimer != nil {
		return
	}

	if c.sink.NetworkState() == media.NetworkNoSource {
		c.logger.Warn("Audio source lost, reloading",
			zap.String("station", s.station.ID),
			zap.Error(ErrStallDetected))
		_ = c.loadLocked(s.station)
		return
	}

	if c.sink.Paused() {
		return
	}

	pos := c.sink.Position()
	gap := media.BufferedEnd(c.sink.Buffered()) - pos
	if gap <= c.opts.StallThreshold {
		return
	}

	c.logger.Info("Playback far behind buffer, nudging",
		zap.String("station", s.station.ID),
		zap.Float64("position", pos),
		zap.Float64("gap", gap))
	c.sink.SetPosition(pos + c.opts.StallNudge)
	s.stallPosition = c.sink.Position()
	s.recheckTimer = c.sched.AfterFunc(c.opts.StallRecheckDelay, func() {
		c.stallRecheck(id)
	})
}

func (c *Controller) stallRecheck(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil {
		return
	}
	s.recheckTimer = nil

	// A stopped session has nothing to advance.
	if c.sink.Paused() || c.sink.Position() > s.stallPosition {
		return
	}
	c.logger.Warn("Playback did not advance, reloading",
		zap.String("station", s.station.ID),
		zap.Float64("position", s.stallPosition),
		zap.Error(ErrStallDetected))
	_ = c.loadLocked(s.station)
}

func (c *Controller) armPressureLocked(s *session) {
	id := s.id
	s.pressureTimer = c.sched.AfterFunc(c.opts.PressureCheckInterval, func() {
		c.pressureCheck(id)
	})
}

// pressureCheck reloads when the buffered span outgrows its bound
func (c *Controller) pressureCheck(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current(id)
	if s == nil {
		return
	}
	c.armPressureLocked(s)

	if s.loading {
		return
	}
	span := media.BufferedSpan(c.sink.Buffered())
	if span <= c.opts.MaxBufferedSeconds {
		return
	}
	c.logger.Warn("Buffered media over limit, reloading",
		zap.String("station", s.station.ID),
		zap.Float64("buffered", span),
		zap.Float64("limit", c.opts.MaxBufferedSeconds))
	_ = c.loadLocked(s.station)
}
