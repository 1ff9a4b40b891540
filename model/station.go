package model

import "strings"

// Station is one entry of the station catalog
type Station struct {
	ID          string `json:"id"`           // e.g. "groovesalad"
	Name        string `json:"name"`         // e.g. "Groove Salad Classic"
	StreamURL   string `json:"stream_url"`   // HLS manifest or direct MP3/AAC stream
	PlaylistURL string `json:"playlist_url"` // now-playing feed (songs.xml)
}

// IsZero reports whether the station is the empty value
func (s Station) IsZero() bool {
	return s.ID == "" && s.StreamURL == ""
}

// DefaultStations is the built-in catalog
var DefaultStations = []Station{
	{
		ID:          "groovesalad",
		Name:        "Groove Salad Classic",
		StreamURL:   "https://hls.somafm.com/hls/gs-unprocessed/320k/program.m3u8",
		PlaylistURL: "https://somafm.com/songs/groovesalad.xml",
	},
	{
		ID:          "cliqhop",
		Name:        "Cliqhop",
		StreamURL:   "https://ice1.somafm.com/cliqhop-128-aac",
		PlaylistURL: "https://somafm.com/songs/cliqhop.xml",
	},
	{
		ID:          "dronezone",
		Name:        "Drone Zone",
		StreamURL:   "https://ice1.somafm.com/dronezone-128-mp3",
		PlaylistURL: "https://somafm.com/songs/dronezone.xml",
	},
	{
		ID:          "defcon",
		Name:        "DEF CON Radio",
		StreamURL:   "https://ice1.somafm.com/defcon-128-mp3",
		PlaylistURL: "https://somafm.com/songs/defcon.xml",
	},
	{
		ID:          "secretagent",
		Name:        "Secret Agent",
		StreamURL:   "https://ice1.somafm.com/secretagent-128-aac",
		PlaylistURL: "https://somafm.com/songs/secretagent.xml",
	},
}

// DefaultStationID is played when nothing else was chosen
const DefaultStationID = "groovesalad"

// FindStation looks a station up by ID (case-insensitive)
func FindStation(stations []Station, id string) (Station, bool) {
	for _, s := range stations {
		if strings.EqualFold(s.ID, id) {
			return s, true
		}
	}
	return Station{}, false
}

// StationIndex returns the position of the station in the list, or -1
func StationIndex(stations []Station, id string) int {
	for i, s := range stations {
		if strings.EqualFold(s.ID, id) {
			return i
		}
	}
	return -1
}

// InitialStation picks the station to start with: the preferred ID when it
// exists in the catalog, otherwise DefaultStationID, otherwise the first entry.
func InitialStation(stations []Station, preferredID string) (Station, bool) {
	if s, ok := FindStation(stations, preferredID); ok {
		return s, true
	}
	if s, ok := FindStation(stations, DefaultStationID); ok {
		return s, true
	}
	if len(stations) > 0 {
		return stations[0], true
	}
	return Station{}, false
}
