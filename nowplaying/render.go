package nowplaying

import (
	"time"

	"go.uber.org/zap"

	"somaradio/model"
)

const (
	// FallbackTitle is shown when a failed poll has no station name
	FallbackTitle = "SomaFM Radio"
	// UnavailablePlaceholder replaces the history after a failed poll
	UnavailablePlaceholder = "Unable to load playlist."
)

// Display is what a renderer shows for one poll
type Display struct {
	StationID   string
	StationName string
	// Title is the now-playing line, or the station name after a failure.
	Title       string
	Current     *model.Track
	History     []model.Track
	Placeholder string
	Err         error
	UpdatedAt   time.Time
}

// Failed reports whether the poll that produced d failed
func (d Display) Failed() bool {
	return d.Err != nil
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks somaradio/nowplaying Fetcher,Renderer

// Renderer consumes poll results
type Renderer interface {
	Render(d Display)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(d Display)

// Render calls f(d)
func (f RendererFunc) Render(d Display) {
	f(d)
}

// Renderers fans a display out to several renderers in order
type Renderers []Renderer

// Render hands d to each renderer
func (rs Renderers) Render(d Display) {
	for _, r := range rs {
		r.Render(d)
	}
}

// LogRenderer writes every display to the log
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

// Render logs a failed poll as a warning and a successful one at info level
func (r *LogRenderer) Render(d Display) {
	if d.Failed() {
		r.logger.Warn("Now playing unavailable",
			zap.String("station", d.StationID),
			zap.Error(d.Err))
		return
	}
	r.logger.Info("Now playing",
		zap.String("station", d.StationID),
		zap.String("track", d.Title),
		zap.Int("history", len(d.History)))
}

// pendingDisplay stands in for a station that has not been polled yet
func pendingDisplay(station model.Station) Display {
	title := station.Name
	if title == "" {
		title = FallbackTitle
	}
	return Display{
		StationID:   station.ID,
		StationName: station.Name,
		Title:       title,
	}
}

func successDisplay(station model.Station, tracks []model.Track, historySize int, now time.Time) Display {
	current := tracks[0]
	end := min(historySize, len(tracks))
	var history []model.Track
	if end > 1 {
		history = append([]model.Track(nil), tracks[1:end]...)
	}
	return Display{
		StationID:   station.ID,
		StationName: station.Name,
		Title:       current.String(),
		Current:     &current,
		History:     history,
		UpdatedAt:   now,
	}
}

func failureDisplay(station model.Station, err error, now time.Time) Display {
	title := station.Name
	if title == "" {
		title = FallbackTitle
	}
	return Display{
		StationID:   station.ID,
		StationName: station.Name,
		Title:       title,
		Placeholder: UnavailablePlaceholder,
		Err:         err,
		UpdatedAt:   now,
	}
}
