package nowplaying

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"somaradio/model"
)

var (
	// ErrFetchFailed means the feed could not be retrieved
	ErrFetchFailed = errors.New("playlist fetch failed")
	// ErrParseFailed means the feed body is not a valid song list
	ErrParseFailed = errors.New("playlist parse failed")
	// ErrEmptyFeed means the feed parsed but lists no songs
	ErrEmptyFeed = errors.New("playlist is empty")
)

type feedSong struct {
	Title  string `xml:"title"`
	Artist string `xml:"artist"`
	Album  string `xml:"album"`
	Date   string `xml:"date"`
}

type feedDocument struct {
	XMLName     xml.Name
	Songs       []feedSong `xml:"song"`
	ParserError []string   `xml:"parsererror"`
}

// ParseFeed decodes a songs.xml document, most recent song first
func ParseFeed(data []byte) ([]model.Track, error) {
	var doc feedDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if doc.XMLName.Local == "parsererror" || len(doc.ParserError) > 0 {
		return nil, fmt.Errorf("%w: document carries a parser error", ErrParseFailed)
	}
	if len(doc.Songs) == 0 {
		return nil, ErrEmptyFeed
	}

	tracks := make([]model.Track, 0, len(doc.Songs))
	for _, s := range doc.Songs {
		tracks = append(tracks, model.Track{
			Title:    strings.TrimSpace(s.Title),
			Artist:   strings.TrimSpace(s.Artist),
			Album:    strings.TrimSpace(s.Album),
			PlayedAt: parseDate(s.Date),
		})
	}
	return tracks, nil
}

// parseDate reads the unix timestamp SomaFM puts in <date>
func parseDate(v string) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
