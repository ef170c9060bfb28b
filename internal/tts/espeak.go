package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// baseWordsPerMinute is espeak's speaking rate at speed 1.0.
const baseWordsPerMinute = 175

// Espeak renders speech with the espeak command-line synthesizer.
type Espeak struct{}

// Name implements Backend.
func (Espeak) Name() string { return "espeak" }

// Available reports whether the espeak binary is on PATH.
func (Espeak) Available() bool {
	_, err := exec.LookPath("espeak")
	return err == nil
}

// Render synthesizes text straight to a wave file.
func (e Espeak) Render(ctx context.Context, text, voice string, speed float64, dst string) error {
	if speed <= 0 {
		speed = 1.0
	}
	args := espeakArgs(text, voice, speed, dst)

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "espeak", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, lookErr := exec.LookPath("espeak"); lookErr != nil {
			return fmt.Errorf("%w: espeak", ErrBackendUnavailable)
		}
		return fmt.Errorf("%w: espeak: %v: %s", ErrSynthesisFailed, err, stderr.String())
	}
	return nil
}

func espeakArgs(text, voice string, speed float64, dst string) []string {
	args := []string{
		"-s", strconv.Itoa(int(baseWordsPerMinute * speed)),
		"-a", "100",
	}
	if voice != "" && voice != "default" {
		args = append(args, "-v", voice)
	}
	return append(args, "-w", dst, text)
}
