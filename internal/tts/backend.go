package tts

import (
	"context"
	"time"
)

// Backend is one ranked synthesis engine. Available is the capability
// probe checked before each render; Render produces a PCM wave file at
// dst or reports a distinguished failure.
type Backend interface {
	Name() string
	Available() bool
	Render(ctx context.Context, text, voice string, speed float64, dst string) error
}

// renderTimeout bounds a single backend invocation.
const renderTimeout = 30 * time.Second
