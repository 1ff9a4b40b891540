package hls

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"somaradio/media"
)

// watchdog tracks playback progress between ticks and repairs stalls by
// jumping small holes and nudging the playhead forward.
type watchdog struct {
	cfg     Config
	sink    media.Sink
	logger  *zap.Logger
	report  func(*ErrorData)
	last    float64
	started bool
	retries int
}

func newWatchdog(cfg Config, sink media.Sink, logger *zap.Logger, report func(*ErrorData)) *watchdog {
	return &watchdog{cfg: cfg, sink: sink, logger: logger, report: report}
}

func (w *watchdog) run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.HighBufferWatchdogPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.tick(); err != nil {
				return err
			}
		}
	}
}

// tick runs one health check. It returns a fatal error once nudging has
// been exhausted.
func (w *watchdog) tick() *ErrorData {
	pos := w.sink.Position()
	if w.sink.Paused() {
		w.last = pos
		w.retries = 0
		return nil
	}
	if !w.started || pos > w.last {
		w.started = true
		w.last = pos
		w.retries = 0
		return nil
	}

	ranges := w.sink.Buffered()
	if len(ranges) == 0 || w.sink.ReadyState() < media.HaveFutureData {
		// Nothing decoded to play; the loader or decoder is behind.
		return nil
	}

	if next, ok := nextRangeStart(ranges, pos); ok && next-pos <= w.cfg.MaxBufferHole {
		w.logger.Info("Skipping buffer hole",
			zap.Float64("from", pos),
			zap.Float64("to", next))
		w.sink.SetPosition(next)
		w.last = next
		w.report(&ErrorData{Type: MediaError, Details: BufferSeekOverHole})
		return nil
	}

	if w.retries >= w.cfg.NudgeMaxRetry {
		return &ErrorData{
			Type:    MediaError,
			Details: BufferStalledError,
			Fatal:   true,
			Err:     fmt.Errorf("playback stuck at %.2fs after %d nudges", pos, w.retries),
		}
	}

	w.retries++
	target := pos + w.cfg.NudgeOffset*float64(w.retries)
	w.logger.Info("Nudging stalled playback",
		zap.Float64("position", pos),
		zap.Float64("target", target),
		zap.Int("retry", w.retries))
	w.sink.SetPosition(target)
	w.last = target
	w.report(&ErrorData{Type: MediaError, Details: BufferNudgeOnStall})
	return nil
}

// nextRangeStart returns the start of the first range beginning after pos
// when pos is not inside any range.
func nextRangeStart(ranges []media.TimeRange, pos float64) (float64, bool) {
	for _, r := range ranges {
		if pos >= r.Start && pos < r.End {
			return 0, false
		}
		if r.Start > pos {
			return r.Start, true
		}
	}
	return 0, false
}
