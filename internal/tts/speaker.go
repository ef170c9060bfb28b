// Package tts turns text into audible speech: a ranked chain of
// external synthesis backends renders artifacts, a content-addressed
// cache replays them, and a speaker plays them through the first
// working audio output tool.
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
	"github.com/dgnsrekt/mediahub/internal/proc"
	"github.com/dgnsrekt/mediahub/internal/ttscache"
)

// Renderer produces a speech artifact for a request. *Chain is the
// production implementation.
type Renderer interface {
	Render(ctx context.Context, text, voice string, speed float64, dst string) error
}

// playerCandidate is one audio output tool tried in order until the
// artifact plays cleanly.
type playerCandidate struct {
	name string
	args func(path string) []string
}

var playerCandidates = []playerCandidate{
	{"aplay", func(p string) []string { return []string{p} }},
	{"mpg123", func(p string) []string { return []string{"-q", p} }},
	{"sox", func(p string) []string { return []string{p, "-d"} }},
	{"paplay", func(p string) []string { return []string{p} }},
}

// Speaker renders speech requests through the cache and plays the
// resulting artifact. At most one utterance plays at a time.
type Speaker struct {
	cache        *ttscache.Cache
	renderer     Renderer
	defaultVoice string

	mu      sync.Mutex
	current *proc.Session
}

// NewSpeaker wires a cache and a renderer together. defaultVoice is
// used when a request does not name one.
func NewSpeaker(cache *ttscache.Cache, renderer Renderer, defaultVoice string) *Speaker {
	if defaultVoice == "" {
		defaultVoice = "default"
	}
	return &Speaker{cache: cache, renderer: renderer, defaultVoice: defaultVoice}
}

// Say renders the request (or replays a cached artifact) and blocks
// until the audio finishes or Stop is called.
func (s *Speaker) Say(ctx context.Context, req mtypes.SpeechRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ErrEmptyText
	}
	voice := req.Voice
	if voice == "" {
		voice = s.defaultVoice
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	path, err := s.cache.GetOrRender(text, voice, speed, func(dst string) error {
		log.Info("Generating speech", "text", truncate(text, 50), "voice", voice)
		return s.renderer.Render(ctx, text, voice, speed, dst)
	})
	if err != nil {
		return err
	}

	return s.play(ctx, path)
}

// play runs the artifact through the first output tool that exits
// cleanly. A deliberate Stop counts as success.
func (s *Speaker) play(ctx context.Context, path string) error {
	for _, candidate := range playerCandidates {
		if _, err := exec.LookPath(candidate.name); err != nil {
			continue
		}

		session := proc.NewSession(candidate.name, candidate.args(path)...)
		s.mu.Lock()
		s.current = session
		s.mu.Unlock()

		if err := session.Start(ctx); err != nil {
			log.Warn("Speech player failed to start", "player", candidate.name, "err", err)
			continue
		}
		<-session.Done()

		if session.ExitReason() == mtypes.ExitRequested {
			return nil
		}
		if session.Err() == nil {
			return nil
		}
		log.Warn("Speech player failed, trying next", "player", candidate.name, "err", session.Err())
	}
	return fmt.Errorf("no usable audio output tool for %s", path)
}

// Stop interrupts the current utterance, if one is playing.
func (s *Speaker) Stop() {
	s.mu.Lock()
	session := s.current
	s.mu.Unlock()
	if session != nil {
		_ = session.Stop(proc.DefaultGrace)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
