package hls

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"

	"github.com/grafov/m3u8"
)

var errNoVariants = errors.New("master playlist has no variants")

// segment is a resolved media segment
type segment struct {
	seq      uint64
	url      string
	duration float64
}

// level is a parsed media playlist
type level struct {
	segments       []segment
	targetDuration float64
	live           bool
}

// manifest is the result of parsing the URL handed to LoadSource. For a
// master playlist variantURL points at the chosen media playlist.
type manifest struct {
	master     bool
	levels     int
	variantURL string
	media      *level
}

func parseManifest(base string, body []byte) (*manifest, error) {
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		variant := highestBandwidth(master.Variants)
		if variant == nil {
			return nil, errNoVariants
		}
		ref, err := resolve(base, variant.URI)
		if err != nil {
			return nil, err
		}
		return &manifest{master: true, levels: len(master.Variants), variantURL: ref}, nil
	case m3u8.MEDIA:
		lvl, err := newLevel(base, pl.(*m3u8.MediaPlaylist))
		if err != nil {
			return nil, err
		}
		return &manifest{levels: 1, media: lvl}, nil
	default:
		return nil, fmt.Errorf("unknown playlist type %v", listType)
	}
}

func parseLevel(base string, body []byte) (*level, error) {
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, errors.New("expected a media playlist")
	}
	return newLevel(base, pl.(*m3u8.MediaPlaylist))
}

func newLevel(base string, pl *m3u8.MediaPlaylist) (*level, error) {
	lvl := &level{
		targetDuration: pl.TargetDuration,
		live:           !pl.Closed,
	}

	// Segments is preallocated; unused slots are nil.
	var i uint64
	for _, s := range pl.Segments {
		if s == nil {
			continue
		}
		ref, err := resolve(base, s.URI)
		if err != nil {
			return nil, err
		}
		lvl.segments = append(lvl.segments, segment{
			seq:      pl.SeqNo + i,
			url:      ref,
			duration: s.Duration,
		})
		i++
	}
	return lvl, nil
}

// startIndex is where loading begins: the live edge minus syncCount
// segments, or the first segment of a finished playlist.
func (l *level) startIndex(syncCount int) int {
	if !l.live {
		return 0
	}
	idx := len(l.segments) - syncCount
	if idx < 0 {
		return 0
	}
	return idx
}

func highestBandwidth(variants []*m3u8.Variant) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range variants {
		if v == nil || v.URI == "" {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse segment url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
