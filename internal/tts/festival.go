package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Festival renders speech through festival's text2wave front end,
// which writes a wave file directly instead of playing to the sound
// device. Voice selection is not mapped; festival speaks with its
// configured default voice.
type Festival struct{}

// Name implements Backend.
func (Festival) Name() string { return "festival" }

// Available reports whether text2wave is on PATH.
func (Festival) Available() bool {
	_, err := exec.LookPath("text2wave")
	return err == nil
}

// Render pipes the text through text2wave.
func (f Festival) Render(ctx context.Context, text, _ string, speed float64, dst string) error {
	args := []string{"-o", dst}
	if speed > 0 && speed != 1.0 {
		// Festival stretches durations, so the factor is inverted.
		args = append(args, "-eval", fmt.Sprintf("(Parameter.set 'Duration_Stretch %.2f)", 1.0/speed))
	}

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "text2wave", args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, lookErr := exec.LookPath("text2wave"); lookErr != nil {
			return fmt.Errorf("%w: text2wave", ErrBackendUnavailable)
		}
		return fmt.Errorf("%w: text2wave: %v: %s", ErrSynthesisFailed, err, stderr.String())
	}
	return nil
}
