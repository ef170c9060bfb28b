// Package queue implements playlist traversal: a small state machine
// over an ordered list of tracks with a current index, shuffle and
// repeat flags, and bounded skipping of unresolvable entries.
package queue

import (
	"math/rand/v2"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
)

// State is the queue's lifecycle state.
type State int

const (
	// StateEmpty means no playlist has been loaded.
	StateEmpty State = iota

	// StatePlaying means a playlist is loaded and the index is valid.
	StatePlaying

	// StateFinished means traversal ran off the end of the playlist.
	StateFinished
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Queue tracks the position within a loaded playlist. It is not safe
// for concurrent use; the playback controller serializes all access.
type Queue struct {
	tracks  []mtypes.Track
	index   int
	state   State
	shuffle bool
	repeat  bool
	skips   int
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{state: StateEmpty}
}

// Load replaces the queue contents wholesale and moves to the first
// track. If shuffle is enabled the order is permuted once here and
// stays fixed until the next load.
func (q *Queue) Load(tracks []mtypes.Track) {
	q.tracks = make([]mtypes.Track, len(tracks))
	copy(q.tracks, tracks)

	if q.shuffle {
		rand.Shuffle(len(q.tracks), func(i, j int) {
			q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
		})
	}

	q.index = 0
	q.skips = 0
	if len(q.tracks) == 0 {
		q.state = StateEmpty
		return
	}
	q.state = StatePlaying
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.tracks = nil
	q.index = 0
	q.skips = 0
	q.state = StateEmpty
}

// Current returns the track at the current index, if any.
func (q *Queue) Current() (mtypes.Track, bool) {
	if q.state != StatePlaying {
		return mtypes.Track{}, false
	}
	return q.tracks[q.index], true
}

// AdvanceOnNaturalEnd moves the index after a track plays to
// completion. It reports whether another track should play: a length-1
// playlist with repeat replays in place, otherwise the index steps
// forward, wraps when repeat is set, or the queue finishes.
func (q *Queue) AdvanceOnNaturalEnd() bool {
	if q.state != StatePlaying {
		return false
	}

	switch {
	case q.repeat && len(q.tracks) == 1:
		// Replay the same track.
	case q.index < len(q.tracks)-1:
		q.index++
	case q.repeat:
		q.index = 0
	default:
		q.state = StateFinished
		return false
	}
	return true
}

// Next moves forward one position, wrapping at the end regardless of
// the repeat flag. A finished queue picks back up at the wrapped
// index. Reports whether a track is available; only an empty queue is
// a no-op.
func (q *Queue) Next() bool {
	if len(q.tracks) == 0 {
		return false
	}
	q.revive()
	q.index = (q.index + 1) % len(q.tracks)
	return true
}

// Previous moves back one position, wrapping at the start regardless
// of the repeat flag. A finished queue picks back up at the wrapped
// index. Reports whether a track is available; only an empty queue is
// a no-op.
func (q *Queue) Previous() bool {
	if len(q.tracks) == 0 {
		return false
	}
	q.revive()
	q.index = (q.index - 1 + len(q.tracks)) % len(q.tracks)
	return true
}

// revive brings a finished queue back to playing for manual
// navigation.
func (q *Queue) revive() {
	if q.state == StateFinished {
		q.state = StatePlaying
		q.skips = 0
	}
}

// Skip advances past a track that could not be resolved. After as many
// consecutive skips as the playlist is long the queue finishes, so an
// all-missing playlist cannot spin forever under repeat. Reports
// whether another track should be attempted.
func (q *Queue) Skip() bool {
	if q.state != StatePlaying {
		return false
	}

	q.skips++
	if q.skips >= len(q.tracks) {
		q.state = StateFinished
		return false
	}

	if q.index < len(q.tracks)-1 {
		q.index++
		return true
	}
	if q.repeat {
		q.index = 0
		return true
	}
	q.state = StateFinished
	return false
}

// ResetSkips clears the consecutive-skip counter. Called once a track
// actually starts playing.
func (q *Queue) ResetSkips() { q.skips = 0 }

// ToggleShuffle flips the shuffle flag and returns the new value. The
// current order is unaffected; shuffle applies at the next load.
func (q *Queue) ToggleShuffle() bool {
	q.shuffle = !q.shuffle
	return q.shuffle
}

// ToggleRepeat flips the repeat flag and returns the new value.
func (q *Queue) ToggleRepeat() bool {
	q.repeat = !q.repeat
	return q.repeat
}

// SetShuffle sets the shuffle flag directly.
func (q *Queue) SetShuffle(on bool) { q.shuffle = on }

// Shuffle reports the shuffle flag.
func (q *Queue) Shuffle() bool { return q.shuffle }

// Repeat reports the repeat flag.
func (q *Queue) Repeat() bool { return q.repeat }

// Len returns the number of loaded tracks.
func (q *Queue) Len() int { return len(q.tracks) }

// Index returns the current position.
func (q *Queue) Index() int { return q.index }

// State returns the queue's lifecycle state.
func (q *Queue) State() State { return q.state }
