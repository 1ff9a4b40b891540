package hls

import "time"

// Config bounds what the client buffers. The limits keep a long-lived live
// stream from growing memory without bound and let the watchdog repair small
// stalls on its own. Only media that has not been decoded yet is buffered;
// played media is never retained, so there is no back buffer to trim.
type Config struct {
	// MaxBufferLength is the forward buffer target in seconds.
	MaxBufferLength float64
	// MaxMaxBufferLength is the absolute forward buffer cap in seconds.
	MaxMaxBufferLength float64
	// MaxBufferSize caps queued, not yet decoded bytes.
	MaxBufferSize int64
	// MaxBufferHole is the largest gap (seconds) the watchdog jumps over.
	MaxBufferHole float64
	// HighBufferWatchdogPeriod is how often buffer health is checked.
	HighBufferWatchdogPeriod time.Duration
	// NudgeOffset is the forward step (seconds) applied per stall retry.
	NudgeOffset float64
	// NudgeMaxRetry is how many nudges are tried before a fatal stall.
	NudgeMaxRetry int

	// LiveSyncDurationCount is how many segments behind the live edge
	// playback starts.
	LiveSyncDurationCount int

	ManifestLoadingMaxRetry int
	FragLoadingMaxRetry     int
	RetryDelay              time.Duration
	RequestTimeout          time.Duration
}

// DefaultConfig returns the bounded defaults used for radio streams
func DefaultConfig() Config {
	return Config{
		MaxBufferLength:          30,
		MaxMaxBufferLength:       60,
		MaxBufferSize:            30 * 1024 * 1024,
		MaxBufferHole:            0.5,
		HighBufferWatchdogPeriod: 2 * time.Second,
		NudgeOffset:              0.1,
		NudgeMaxRetry:            3,
		LiveSyncDurationCount:    3,
		ManifestLoadingMaxRetry:  2,
		FragLoadingMaxRetry:      3,
		RetryDelay:               time.Second,
		RequestTimeout:           10 * time.Second,
	}
}

// forwardBufferTarget is the effective forward buffer limit
func (c Config) forwardBufferTarget() float64 {
	target := c.MaxBufferLength
	if c.MaxMaxBufferLength > 0 && target > c.MaxMaxBufferLength {
		target = c.MaxMaxBufferLength
	}
	return target
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxBufferLength <= 0 {
		c.MaxBufferLength = d.MaxBufferLength
	}
	if c.MaxMaxBufferLength <= 0 {
		c.MaxMaxBufferLength = d.MaxMaxBufferLength
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = d.MaxBufferSize
	}
	if c.MaxBufferHole <= 0 {
		c.MaxBufferHole = d.MaxBufferHole
	}
	if c.HighBufferWatchdogPeriod <= 0 {
		c.HighBufferWatchdogPeriod = d.HighBufferWatchdogPeriod
	}
	if c.NudgeOffset <= 0 {
		c.NudgeOffset = d.NudgeOffset
	}
	if c.NudgeMaxRetry <= 0 {
		c.NudgeMaxRetry = d.NudgeMaxRetry
	}
	if c.LiveSyncDurationCount <= 0 {
		c.LiveSyncDurationCount = d.LiveSyncDurationCount
	}
	if c.ManifestLoadingMaxRetry < 0 {
		c.ManifestLoadingMaxRetry = 0
	}
	if c.FragLoadingMaxRetry < 0 {
		c.FragLoadingMaxRetry = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}
