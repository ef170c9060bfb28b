package tts

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
	"github.com/dgnsrekt/mediahub/internal/ttscache"
)

type countingRenderer struct {
	calls int
}

func (r *countingRenderer) Render(_ context.Context, _, _ string, _ float64, dst string) error {
	r.calls++
	return writeWAV(dst, defaultWavFormat, []byte{0, 0, 0, 0})
}

// stubPlayers replaces the audio output tools with one that exits
// immediately, restoring the real list on cleanup.
func stubPlayers(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	saved := playerCandidates
	playerCandidates = []playerCandidate{
		{"true", func(string) []string { return nil }},
	}
	t.Cleanup(func() { playerCandidates = saved })
}

func newTestSpeaker(t *testing.T) (*Speaker, *countingRenderer) {
	t.Helper()
	cache, err := ttscache.New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	renderer := &countingRenderer{}
	return NewSpeaker(cache, renderer, "default"), renderer
}

func TestSayEmptyText(t *testing.T) {
	speaker, renderer := newTestSpeaker(t)
	err := speaker.Say(context.Background(), mtypes.SpeechRequest{Text: "   "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("Say() error = %v, want %v", err, ErrEmptyText)
	}
	if renderer.calls != 0 {
		t.Error("renderer invoked for empty text")
	}
}

func TestSayRendersOnceAcrossRepeats(t *testing.T) {
	stubPlayers(t)
	speaker, renderer := newTestSpeaker(t)

	req := mtypes.SpeechRequest{Text: "dinner is ready", Voice: "en", Speed: 1.0}
	for i := 0; i < 2; i++ {
		if err := speaker.Say(context.Background(), req); err != nil {
			t.Fatalf("Say() #%d error: %v", i, err)
		}
	}
	if renderer.calls != 1 {
		t.Errorf("renderer invoked %d times, want 1", renderer.calls)
	}
}

func TestSayDefaultsVoiceAndSpeed(t *testing.T) {
	stubPlayers(t)
	speaker, renderer := newTestSpeaker(t)

	// The same text with explicit defaults must share a cache entry
	// with the bare request.
	if err := speaker.Say(context.Background(), mtypes.SpeechRequest{Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	if err := speaker.Say(context.Background(), mtypes.SpeechRequest{
		Text: "hello", Voice: "default", Speed: 1.0,
	}); err != nil {
		t.Fatal(err)
	}
	if renderer.calls != 1 {
		t.Errorf("renderer invoked %d times, want 1", renderer.calls)
	}
}

func TestStopWithoutUtterance(t *testing.T) {
	speaker, _ := newTestSpeaker(t)
	speaker.Stop() // must not panic or block
}
