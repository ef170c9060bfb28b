package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
	"github.com/dgnsrekt/mediahub/internal/remote"
	"github.com/dgnsrekt/mediahub/internal/tts"
	"github.com/dgnsrekt/mediahub/internal/ttscache"
)

type fakeSpeaker struct {
	requests []mtypes.SpeechRequest
	err      error
}

func (f *fakeSpeaker) Say(_ context.Context, req mtypes.SpeechRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakePlayer struct {
	status mtypes.Status
}

func (f *fakePlayer) Status() mtypes.Status { return f.status }

type fakeCommands struct {
	payloads []string
	err      error
}

func (f *fakeCommands) HandleRaw(_ context.Context, raw []byte) error {
	f.payloads = append(f.payloads, string(raw))
	return f.err
}

func newTestServer(speaker *fakeSpeaker, player *fakePlayer, commands *fakeCommands) *Server {
	cfg := Config{Player: player}
	if speaker != nil {
		cfg.Speaker = speaker
	}
	if commands != nil {
		cfg.Commands = commands
	}
	return New(cfg)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestTTSSuccess(t *testing.T) {
	speaker := &fakeSpeaker{}
	s := newTestServer(speaker, &fakePlayer{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/tts", `{"text":"dinner is ready","voice":"en","speed":1.2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeResponse(t, rec)["status"]; got != "success" {
		t.Errorf("status field = %v, want success", got)
	}
	if len(speaker.requests) != 1 {
		t.Fatalf("speaker received %d requests, want 1", len(speaker.requests))
	}
	req := speaker.requests[0]
	if req.Text != "dinner is ready" || req.Voice != "en" || req.Speed != 1.2 {
		t.Errorf("speaker request = %+v", req)
	}
}

func TestTTSEmptyText(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{}`},
		{"blank text", `{"text":"   "}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			speaker := &fakeSpeaker{}
			s := newTestServer(speaker, &fakePlayer{}, nil)
			rec := doRequest(t, s, http.MethodPost, "/tts", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(speaker.requests) != 0 {
				t.Errorf("speaker was called for empty text")
			}
		})
	}
}

func TestTTSInvalidBody(t *testing.T) {
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/tts", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTTSSpeedOutOfRange(t *testing.T) {
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/tts", `{"text":"hi","speed":9.0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTTSSynthesisFailure(t *testing.T) {
	speaker := &fakeSpeaker{err: tts.ErrNoBackend}
	s := newTestServer(speaker, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/tts", `{"text":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestTTSEmptyAfterTokenizing(t *testing.T) {
	// The speaker can still reject text that collapses to nothing.
	speaker := &fakeSpeaker{err: tts.ErrEmptyText}
	s := newTestServer(speaker, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/tts", `{"text":"<pause 100>"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommandDispatch(t *testing.T) {
	commands := &fakeCommands{}
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, commands)

	body := `{"type":"play_music","song_name":"take five"}`
	rec := doRequest(t, s, http.MethodPost, "/hc3/command", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(commands.payloads) != 1 || commands.payloads[0] != body {
		t.Errorf("payloads = %v", commands.payloads)
	}
}

func TestCommandFailure(t *testing.T) {
	commands := &fakeCommands{err: errors.New("no such track")}
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, commands)
	rec := doRequest(t, s, http.MethodPost, "/hc3/command", `{"type":"stop_music"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCommandWithoutDispatcher(t *testing.T) {
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/hc3/command", `{"type":"stop_music"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	m := decodeResponse(t, rec)
	if m["status"] != "healthy" || m["service"] != "mediahub" {
		t.Errorf("health payload = %v", m)
	}
}

func TestStatus(t *testing.T) {
	player := &fakePlayer{status: mtypes.Status{
		IsPlaying:      true,
		CurrentSong:    "take five",
		Volume:         70,
		PlaylistLength: 3,
		CurrentIndex:   1,
	}}
	s := New(Config{
		Speaker: &fakeSpeaker{},
		Player:  player,
		CacheStats: func() ttscache.Stats {
			return ttscache.Stats{Entries: 4, Bytes: 2048, Hits: 9, Misses: 4}
		},
		StreamCacheInfo: func() (remote.CacheInfo, error) {
			return remote.CacheInfo{Entries: 2, Bytes: 4096, Dir: "/tmp/streams"}, nil
		},
	})

	rec := doRequest(t, s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload struct {
		Service string        `json:"service"`
		Player  mtypes.Status `json:"player"`
		Cache   *struct {
			Entries int   `json:"entries"`
			Hits    int64 `json:"hits"`
		} `json:"tts_cache"`
		StreamCache *remote.CacheInfo `json:"stream_cache"`
		Endpoints   map[string]string `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unable to decode status: %v", err)
	}
	if payload.Service != "mediahub" {
		t.Errorf("service = %q", payload.Service)
	}
	if !payload.Player.IsPlaying || payload.Player.CurrentSong != "take five" {
		t.Errorf("player status = %+v", payload.Player)
	}
	if payload.Cache == nil || payload.Cache.Entries != 4 || payload.Cache.Hits != 9 {
		t.Errorf("cache stats = %+v", payload.Cache)
	}
	if payload.StreamCache == nil || payload.StreamCache.Entries != 2 || payload.StreamCache.Dir != "/tmp/streams" {
		t.Errorf("stream cache info = %+v", payload.StreamCache)
	}
	if len(payload.Endpoints) != 4 {
		t.Errorf("endpoints = %v", payload.Endpoints)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeSpeaker{}, &fakePlayer{}, &fakeCommands{})
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/tts"},
		{http.MethodGet, "/hc3/command"},
		{http.MethodPost, "/health"},
		{http.MethodPost, "/status"},
	}
	for _, tc := range tests {
		rec := doRequest(t, s, tc.method, tc.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}
