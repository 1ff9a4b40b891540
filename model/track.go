package model

import (
	"fmt"
	"time"
)

const (
	UnknownTitle  = "Unknown Track"
	UnknownArtist = "Unknown Artist"
)

// Track is a single now-playing feed entry
type Track struct {
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	PlayedAt time.Time `json:"played_at,omitempty"`
}

// String renders the track the way the now-playing line shows it
func (t Track) String() string {
	title := t.Title
	if title == "" {
		title = UnknownTitle
	}
	artist := t.Artist
	if artist == "" {
		artist = UnknownArtist
	}
	return fmt.Sprintf("%s - %s", title, artist)
}
