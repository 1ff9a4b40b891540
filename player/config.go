package player

import (
	"time"

	"somaradio/hls"
	"somaradio/schedule"
)

// Options tunes the controller. Zero values take the defaults.
type Options struct {
	// Autoplay starts playback when the very first station is ready.
	Autoplay bool
	// InitialVolume is applied to the sink on construction.
	InitialVolume float64
	Muted         bool

	HealthCheckInterval time.Duration
	// StallThreshold is the buffered-ahead gap (seconds) that triggers a
	// stall probe.
	StallThreshold    float64
	StallNudge        float64
	StallRecheckDelay time.Duration
	ReloadDelay       time.Duration

	PressureCheckInterval time.Duration
	// MaxBufferedSeconds is the buffered span that forces a reload.
	MaxBufferedSeconds float64

	HLS       hls.Config
	Scheduler schedule.Scheduler
}

// DefaultOptions returns the stock timings
func DefaultOptions() Options {
	return Options{
		InitialVolume:         1,
		HealthCheckInterval:   60 * time.Second,
		StallThreshold:        10,
		StallNudge:            0.1,
		StallRecheckDelay:     2 * time.Second,
		ReloadDelay:           3 * time.Second,
		PressureCheckInterval: 30 * time.Second,
		MaxBufferedSeconds:    90,
		HLS:                   hls.DefaultConfig(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HealthCheckInterval <= 0 {
		o.HealthCheckInterval = d.HealthCheckInterval
	}
	if o.StallThreshold <= 0 {
		o.StallThreshold = d.StallThreshold
	}
	if o.StallNudge <= 0 {
		o.StallNudge = d.StallNudge
	}
	if o.StallRecheckDelay <= 0 {
		o.StallRecheckDelay = d.StallRecheckDelay
	}
	if o.ReloadDelay <= 0 {
		o.ReloadDelay = d.ReloadDelay
	}
	if o.PressureCheckInterval <= 0 {
		o.PressureCheckInterval = d.PressureCheckInterval
	}
	if o.MaxBufferedSeconds <= 0 {
		o.MaxBufferedSeconds = d.MaxBufferedSeconds
	}
	if o.Scheduler == nil {
		o.Scheduler = schedule.System()
	}
	return o
}
