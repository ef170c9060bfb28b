package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/time/rate"
)

// maxGTTSTextSize is the per-request text limit for the Google
// Translate endpoint behind gtts-cli.
const maxGTTSTextSize = 5000

// GTTS renders speech through gtts-cli (Google Translate TTS) and
// converts the resulting MP3 to PCM with ffmpeg. Requests are rate
// limited to avoid being blocked by Google.
type GTTS struct {
	limiter *rate.Limiter
}

// NewGTTS creates the backend with the given requests-per-minute
// budget. rpm <= 0 uses a conservative 50.
func NewGTTS(rpm int) *GTTS {
	if rpm <= 0 {
		rpm = 50
	}
	return &GTTS{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// Name implements Backend.
func (*GTTS) Name() string { return "gtts" }

// Available reports whether both gtts-cli and ffmpeg are on PATH; the
// conversion step is as mandatory as the synthesis step.
func (*GTTS) Available() bool {
	if _, err := exec.LookPath("gtts-cli"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Render synthesizes text to MP3 and transcodes it to a wave file. The
// voice parameter is interpreted as a language code.
func (g *GTTS) Render(ctx context.Context, text, voice string, speed float64, dst string) error {
	if len(text) > maxGTTSTextSize {
		return fmt.Errorf("%w: gtts: text too long (%d chars)", ErrSynthesisFailed, len(text))
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: gtts: rate limit wait: %v", ErrSynthesisFailed, err)
	}

	lang := voice
	if lang == "" || lang == "default" {
		lang = "en"
	}

	tmp, err := os.CreateTemp("", "gtts-*.mp3")
	if err != nil {
		return fmt.Errorf("%w: gtts: %v", ErrSynthesisFailed, err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	synth := exec.CommandContext(ctx, "gtts-cli", text, "-l", lang, "-o", tmp.Name())
	var stderr bytes.Buffer
	synth.Stderr = &stderr
	if err := synth.Run(); err != nil {
		if _, lookErr := exec.LookPath("gtts-cli"); lookErr != nil {
			return fmt.Errorf("%w: gtts-cli", ErrBackendUnavailable)
		}
		return fmt.Errorf("%w: gtts-cli: %v: %s", ErrSynthesisFailed, err, stderr.String())
	}

	args := []string{"-y", "-i", tmp.Name(), "-acodec", "pcm_s16le", "-ar", "22050", "-ac", "1"}
	if speed > 0 && speed != 1.0 {
		tempo := speed
		if tempo < 0.5 {
			tempo = 0.5
		}
		if tempo > 2.0 {
			tempo = 2.0
		}
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", tempo))
	}
	args = append(args, dst)

	convert := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr.Reset()
	convert.Stderr = &stderr
	if err := convert.Run(); err != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrSynthesisFailed, err, stderr.String())
	}
	return nil
}
