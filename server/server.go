package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"somaradio/model"
	"somaradio/nowplaying"
	"somaradio/player"
)

// getRealIP extracts the real client IP from the request.
// It checks headers in the following priority order:
// 1. CF-Connecting-IP (Cloudflare)
// 2. X-Real-IP (nginx)
// 3. X-Forwarded-For (standard proxy, first IP in the list)
// 4. RemoteAddr (fallback)
func getRealIP(r *http.Request) string {
	if cfIP := r.Header.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// X-Forwarded-For is "client, proxy1, proxy2, ..."
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// NowPlayingSource exposes the last rendered now-playing display
type NowPlayingSource interface {
	Current() nowplaying.Display
}

// Server is the headless HTTP control API. It never relays audio.
type Server struct {
	logger     *zap.Logger
	player     player.Player
	nowPlaying NowPlayingSource
	stations   []model.Station
	httpServer *http.Server
}

// DefaultHost is the bind address used when none is given
const DefaultHost = "localhost"

// NewServer creates a control server listening on host:port. An empty host
// means DefaultHost. nowPlaying may be nil.
func NewServer(logger *zap.Logger, host string, port int, p player.Player, nowPlaying NowPlayingSource, stations []model.Station) *Server {
	if host == "" {
		host = DefaultHost
	}
	s := &Server{
		logger:     logger,
		player:     p,
		nowPlaying: nowPlaying,
		stations:   stations,
	}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/nowplaying", s.handleNowPlaying).Methods(http.MethodGet)
	api.HandleFunc("/stations", s.handleStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{stationID}", s.handleLoadStation).Methods(http.MethodPost)
	api.HandleFunc("/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/mute", s.handleMute).Methods(http.MethodPost)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.handleVolume).Methods(http.MethodPost)

	router.Use(s.logRequests)
	return router
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("Control server started",
		zap.String("addr", s.httpServer.Addr),
		zap.String("status", "http://"+s.httpServer.Addr+"/api/status"))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client", getRealIP(r)))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

type nowPlayingResponse struct {
	StationID   string        `json:"station_id"`
	Title       string        `json:"title"`
	Current     *model.Track  `json:"current,omitempty"`
	History     []model.Track `json:"history"`
	Placeholder string        `json:"placeholder,omitempty"`
	Error       string        `json:"error,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	if s.nowPlaying == nil {
		http.Error(w, "now playing is not available", http.StatusNotFound)
		return
	}
	d := s.nowPlaying.Current()
	resp := nowPlayingResponse{
		StationID:   d.StationID,
		Title:       d.Title,
		Current:     d.Current,
		History:     d.History,
		Placeholder: d.Placeholder,
		UpdatedAt:   d.UpdatedAt,
	}
	if resp.History == nil {
		resp.History = []model.Track{}
	}
	if d.Err != nil {
		resp.Error = d.Err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stations)
}

func (s *Server) handleLoadStation(w http.ResponseWriter, r *http.Request) {
	stationID := mux.Vars(r)["stationID"]
	station, ok := model.FindStation(s.stations, stationID)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown station %q", stationID), http.StatusNotFound)
		return
	}

	s.logger.Info("Switching station",
		zap.String("station", station.ID),
		zap.String("client", getRealIP(r)))

	// A load error is recovered by the player itself; report it but keep
	// the new status.
	if err := s.player.LoadStation(station); err != nil {
		if errors.Is(err, player.ErrClosed) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.logger.Warn("Station load reported an error", zap.String("station", station.ID), zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.player.TogglePlay(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	s.player.ToggleMute()
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.player.Reload()
	switch {
	case errors.Is(err, player.ErrNoStation):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, player.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		http.Error(w, "body must be {\"volume\": 0.0-1.0}", http.StatusBadRequest)
		return
	}
	s.player.SetVolume(*req.Volume)
	s.writeJSON(w, http.StatusOK, s.player.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}
