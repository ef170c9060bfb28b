package tts

import "errors"

var (
	// ErrEmptyText is returned when a speech request carries no text.
	ErrEmptyText = errors.New("no text to speak")

	// ErrBackendUnavailable means a synthesis backend is not installed
	// or not usable right now. The chain falls through to the next one.
	ErrBackendUnavailable = errors.New("synthesis backend unavailable")

	// ErrSynthesisFailed means a backend was present but errored while
	// rendering. Distinguished from unavailable in logs; the chain
	// still falls through.
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrNoBackend means every backend in the chain was exhausted.
	ErrNoBackend = errors.New("no synthesis backend succeeded")
)
