package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// DefaultMaxSentences bounds how many sentences go into a single
// backend invocation.
const DefaultMaxSentences = 8

// Chain tries an ordered list of synthesis backends until one
// succeeds. Input text is split on pause markers and chunked by
// sentence count; the chunks are rendered independently and
// concatenated, with literal silence inserted for pauses.
type Chain struct {
	backends     []Backend
	maxSentences int
}

// NewChain builds a chain over the given backends in preference
// order. maxSentences <= 0 uses DefaultMaxSentences.
func NewChain(backends []Backend, maxSentences int) *Chain {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Chain{backends: backends, maxSentences: maxSentences}
}

// DefaultBackends is the standard ranking: local synthesizers first,
// the network-backed one last.
func DefaultBackends() []Backend {
	return []Backend{Espeak{}, Festival{}, NewGTTS(0)}
}

// Render produces the final speech artifact at dst.
func (c *Chain) Render(ctx context.Context, text, voice string, speed float64, dst string) error {
	tokens := Tokenize(text)

	type piece struct {
		samples []byte
		pauseMS int
	}
	var pieces []piece
	format := wavFormat{}
	haveFormat := false

	for _, tok := range tokens {
		if tok.Kind == TokenPause {
			pieces = append(pieces, piece{pauseMS: tok.PauseMS})
			continue
		}
		for _, chunk := range Chunk(tok.Text, c.maxSentences) {
			f, samples, err := c.renderChunk(ctx, chunk, voice, speed)
			if err != nil {
				return err
			}
			if haveFormat && f != format {
				return fmt.Errorf("%w: backend format changed mid-render", ErrSynthesisFailed)
			}
			format = f
			haveFormat = true
			pieces = append(pieces, piece{samples: samples})
		}
	}

	if len(pieces) == 0 {
		return ErrEmptyText
	}
	if !haveFormat {
		format = defaultWavFormat
	}

	var out bytes.Buffer
	for _, p := range pieces {
		if p.pauseMS > 0 {
			out.Write(silence(format, p.pauseMS))
			continue
		}
		out.Write(p.samples)
	}
	return writeWAV(dst, format, out.Bytes())
}

// renderChunk walks the backends for one text chunk. An unavailable
// backend falls through quietly; a failed backend falls through with a
// louder log line so the two are distinguishable.
func (c *Chain) renderChunk(ctx context.Context, chunk, voice string, speed float64) (wavFormat, []byte, error) {
	for _, b := range c.backends {
		if !b.Available() {
			log.Debug("Synthesis backend unavailable", "backend", b.Name())
			continue
		}

		tmp, err := os.CreateTemp("", "tts-chunk-*.wav")
		if err != nil {
			return wavFormat{}, nil, err
		}
		tmp.Close()

		err = b.Render(ctx, chunk, voice, speed, tmp.Name())
		if err != nil {
			os.Remove(tmp.Name())
			if errors.Is(err, ErrBackendUnavailable) {
				log.Debug("Synthesis backend unavailable", "backend", b.Name())
			} else {
				log.Warn("Synthesis backend failed", "backend", b.Name(), "err", err)
			}
			continue
		}

		f, samples, err := readWAV(tmp.Name())
		os.Remove(tmp.Name())
		if err != nil {
			log.Warn("Backend produced unreadable artifact", "backend", b.Name(), "err", err)
			continue
		}
		return f, samples, nil
	}
	return wavFormat{}, nil, ErrNoBackend
}
