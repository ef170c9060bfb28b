// Package server exposes the media hub over HTTP: speech requests,
// home-automation commands, health and status.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
	"github.com/dgnsrekt/mediahub/internal/remote"
	"github.com/dgnsrekt/mediahub/internal/tts"
	"github.com/dgnsrekt/mediahub/internal/ttscache"
)

// serviceName is reported by the health and status endpoints.
const serviceName = "mediahub"

// maxCommandBody caps webhook payload reads.
const maxCommandBody = 1 << 20

// Announcer plays synthesized speech. *tts.Speaker is the production
// implementation.
type Announcer interface {
	Say(ctx context.Context, req mtypes.SpeechRequest) error
}

// StatusReporter snapshots playback state.
type StatusReporter interface {
	Status() mtypes.Status
}

// CommandHandler dispatches raw webhook command payloads.
type CommandHandler interface {
	HandleRaw(ctx context.Context, raw []byte) error
}

// Config wires the server to its collaborators.
type Config struct {
	Speaker  Announcer
	Player   StatusReporter
	Commands CommandHandler

	// CacheStats reports speech cache statistics for /status. Optional.
	CacheStats func() ttscache.Stats

	// StreamCacheInfo reports downloaded-stream cache usage for
	// /status. Optional.
	StreamCacheInfo func() (remote.CacheInfo, error)
}

// Server is the media hub HTTP front end.
type Server struct {
	speaker         Announcer
	player          StatusReporter
	commands        CommandHandler
	cacheStats      func() ttscache.Stats
	streamCacheInfo func() (remote.CacheInfo, error)
}

// New builds a server from its collaborators.
func New(cfg Config) *Server {
	return &Server{
		speaker:         cfg.Speaker,
		player:          cfg.Player,
		commands:        cfg.Commands,
		cacheStats:      cfg.CacheStats,
		streamCacheInfo: cfg.StreamCacheInfo,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tts", s.handleTTS)
	mux.HandleFunc("POST /hc3/command", s.handleCommand)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	return logRequests(mux)
}

// ListenAndServe runs the server on addr until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req mtypes.SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "text cannot be empty"})
		return
	}
	if req.Speed != 0 && (req.Speed < 0.1 || req.Speed > 3.0) {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "speed must be between 0.1 and 3.0"})
		return
	}

	if err := s.speaker.Say(r.Context(), req); err != nil {
		if errors.Is(err, tts.ErrEmptyText) {
			writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "text cannot be empty"})
			return
		}
		log.Error("Speech request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: "speech synthesis failed"})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "speech played"})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeJSON(w, http.StatusServiceUnavailable, response{Status: "error", Message: "command handling disabled"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Message: "unable to read request body"})
		return
	}

	if err := s.commands.HandleRaw(r.Context(), raw); err != nil {
		log.Error("Command failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, response{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "success", Message: "command processed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// statusPayload is the /status response body.
type statusPayload struct {
	Service     string            `json:"service"`
	Player      mtypes.Status     `json:"player"`
	TTSCache    *cacheStats       `json:"tts_cache,omitempty"`
	StreamCache *remote.CacheInfo `json:"stream_cache,omitempty"`
	Endpoints   map[string]string `json:"endpoints"`
}

type cacheStats struct {
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"`
	Summary   string `json:"summary"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := statusPayload{
		Service: serviceName,
		Player:  s.player.Status(),
		Endpoints: map[string]string{
			"tts":     "POST /tts",
			"command": "POST /hc3/command",
			"health":  "GET /health",
			"status":  "GET /status",
		},
	}
	if s.cacheStats != nil {
		stats := s.cacheStats()
		payload.TTSCache = &cacheStats{
			Entries:   stats.Entries,
			Bytes:     stats.Bytes,
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Evictions: stats.Evictions,
			Summary:   stats.String(),
		}
	}
	if s.streamCacheInfo != nil {
		if info, err := s.streamCacheInfo(); err == nil {
			payload.StreamCache = &info
		} else {
			log.Warn("Unable to read stream cache", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Unable to write response", "err", err)
	}
}

// logRequests records each request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("Request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
