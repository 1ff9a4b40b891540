package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"somaradio/model"
	"somaradio/nowplaying"
	"somaradio/player"
)

type fakePlayer struct {
	loaded  []model.Station
	toggles int
	mutes   int
	reloads int
	volume  float64
	status  player.Status
	loadErr error
}

func (p *fakePlayer) LoadStation(st model.Station) error {
	p.loaded = append(p.loaded, st)
	p.status.Station = st
	return p.loadErr
}

func (p *fakePlayer) TogglePlay() error {
	p.toggles++
	p.status.Playing = !p.status.Playing
	return nil
}

func (p *fakePlayer) ToggleMute() {
	p.mutes++
	p.status.Muted = !p.status.Muted
}

func (p *fakePlayer) Reload() error {
	if p.status.Station.IsZero() {
		return player.ErrNoStation
	}
	p.reloads++
	return nil
}

func (p *fakePlayer) SetVolume(v float64)   { p.volume = v; p.status.Volume = v }
func (p *fakePlayer) Volume() float64       { return p.volume }
func (p *fakePlayer) Status() player.Status { return p.status }
func (p *fakePlayer) Close() error          { return nil }

type staticNowPlaying struct{ d nowplaying.Display }

func (s staticNowPlaying) Current() nowplaying.Display { return s.d }

func newHandler(p *fakePlayer, np NowPlayingSource) http.Handler {
	return NewServer(zap.NewNop(), "", 0, p, np, model.DefaultStations).Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) player.Status {
	t.Helper()
	var st player.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return st
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "3.3.3.3:80", "1.1.1.1"},
		{"nginx", map[string]string{"X-Real-IP": "2.2.2.2"}, "3.3.3.3:80", "2.2.2.2"},
		{"forwarded", map[string]string{"X-Forwarded-For": "4.4.4.4, 10.0.0.1"}, "3.3.3.3:80", "4.4.4.4"},
		{"remote addr", nil, "3.3.3.3:8080", "3.3.3.3"},
		{"remote addr without port", nil, "3.3.3.3", "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRealIP(r))
		})
	}
}

func TestLoadStation(t *testing.T) {
	p := &fakePlayer{}
	h := newHandler(p, nil)

	rec := do(h, http.MethodPost, "/api/stations/cliqhop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	st := decodeStatus(t, rec)
	assert.Equal(t, "cliqhop", st.Station.ID)
	require.Len(t, p.loaded, 1)

	rec = do(h, http.MethodPost, "/api/stations/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/api/stations/cliqhop", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLoadStationAfterClose(t *testing.T) {
	p := &fakePlayer{loadErr: player.ErrClosed}
	rec := do(newHandler(p, nil), http.MethodPost, "/api/stations/cliqhop", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestControls(t *testing.T) {
	p := &fakePlayer{}
	h := newHandler(p, nil)

	rec := do(h, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing loaded yet")

	p.status.Station = model.DefaultStations[0]

	for _, path := range []string{"/api/toggle", "/api/mute", "/api/reload"} {
		rec := do(h, http.MethodPost, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, 1, p.toggles)
	assert.Equal(t, 1, p.mutes)
	assert.Equal(t, 1, p.reloads)

	rec = do(h, http.MethodPost, "/api/volume", `{"volume":0.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.25, decodeStatus(t, rec).Volume)

	rec = do(h, http.MethodPost, "/api/volume", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStationsAndStatus(t *testing.T) {
	p := &fakePlayer{status: player.Status{State: "playing", Playing: true}}
	h := newHandler(p, nil)

	rec := do(h, http.MethodGet, "/api/stations", "")
	var stations []model.Station
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stations))
	assert.Equal(t, model.DefaultStations, stations)

	rec = do(h, http.MethodGet, "/api/status", "")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, decodeStatus(t, rec).Playing)
}

func TestNowPlaying(t *testing.T) {
	rec := do(newHandler(&fakePlayer{}, nil), http.MethodGet, "/api/nowplaying", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	np := staticNowPlaying{nowplaying.Display{
		StationID:   "groovesalad",
		Title:       "Groove Salad Classic",
		Placeholder: nowplaying.UnavailablePlaceholder,
		Err:         nowplaying.ErrEmptyFeed,
	}}
	rec = do(newHandler(&fakePlayer{}, np), http.MethodGet, "/api/nowplaying", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body nowPlayingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Groove Salad Classic", body.Title)
	assert.Equal(t, nowplaying.UnavailablePlaceholder, body.Placeholder)
	assert.Equal(t, nowplaying.ErrEmptyFeed.Error(), body.Error)
	assert.Empty(t, body.History)
}

func TestListenAddr(t *testing.T) {
	s := NewServer(zap.NewNop(), "", 8080, &fakePlayer{}, nil, model.DefaultStations)
	assert.Equal(t, "localhost:8080", s.httpServer.Addr)

	s = NewServer(zap.NewNop(), "0.0.0.0", 9000, &fakePlayer{}, nil, model.DefaultStations)
	assert.Equal(t, "0.0.0.0:9000", s.httpServer.Addr)
}
