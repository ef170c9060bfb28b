// Package mtypes contains shared types and interfaces for the media hub.
// This package is used to break import cycles between the player, queue,
// library, remote and tts packages.
package mtypes

import "context"

// SourceKind distinguishes local library tracks from remote streams.
type SourceKind int

const (
	// SourceLocal is a track resolved from the local music library.
	SourceLocal SourceKind = iota

	// SourceRemote is a track streamed from a remote locator.
	SourceRemote
)

// String returns the string representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Track identifies one playable item. Local tracks carry a library name,
// remote tracks carry a locator and a display title. Tracks are created
// at resolution time and are not persisted.
type Track struct {
	// Name is the library track name for local tracks, or a display
	// title for remote tracks.
	Name string

	// Locator is the remote URL, or the resolved file path for local
	// tracks. Empty until resolution.
	Locator string

	// Kind indicates where the track's bytes come from.
	Kind SourceKind

	// AudioOnly selects the audio-only fetch path for remote tracks.
	AudioOnly bool
}

// Identifier returns the value used to report the track in status output.
func (t Track) Identifier() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Locator
}

// ExitReason describes why a playback session ended.
type ExitReason int

const (
	// ExitNatural means the process ran to completion on its own.
	ExitNatural ExitReason = iota

	// ExitRequested means the process was terminated by a stop request.
	ExitRequested
)

// String returns the string representation of the exit reason.
func (r ExitReason) String() string {
	switch r {
	case ExitNatural:
		return "natural"
	case ExitRequested:
		return "requested"
	default:
		return "unknown"
	}
}

// SessionState is the lifecycle state of a playback session.
type SessionState int

const (
	// SessionStarting indicates the session has been created but the
	// process has not been confirmed running yet.
	SessionStarting SessionState = iota

	// SessionActive indicates the process is running.
	SessionActive

	// SessionPaused indicates the process is suspended.
	SessionPaused

	// SessionStopping indicates a stop has been requested and the
	// session is tearing down.
	SessionStopping

	// SessionStopped indicates the process has exited.
	SessionStopped
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionStarting:
		return "starting"
	case SessionActive:
		return "active"
	case SessionPaused:
		return "paused"
	case SessionStopping:
		return "stopping"
	case SessionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the playback state, as reported to the
// webhook collaborator.
type Status struct {
	IsPlaying      bool   `json:"is_playing"`
	CurrentSong    string `json:"current_song,omitempty"`
	Volume         int    `json:"volume"`
	ShuffleMode    bool   `json:"shuffle_mode"`
	RepeatMode     bool   `json:"repeat_mode"`
	PlaylistLength int    `json:"playlist_length"`
	CurrentIndex   int    `json:"current_index"`
}

// SpeechRequest is a request to synthesize and play an announcement.
type SpeechRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// TrackResolver resolves local track names to playable file paths and
// loads persisted playlist definitions.
type TrackResolver interface {
	// Find resolves a track name to a playable file path.
	Find(name string) (string, error)

	// LoadPlaylist reads a persisted playlist definition. A missing or
	// malformed definition yields an empty slice, never an error.
	LoadPlaylist(name string) []string
}

// RemoteEntry is one (title, locator) pair listed from a remote source.
type RemoteEntry struct {
	Title string
	URL   string
}

// RemoteLister resolves search queries and lists remote playlists.
type RemoteLister interface {
	// Search resolves a free-text query to the first matching entry.
	Search(ctx context.Context, query string) (RemoteEntry, error)

	// ListPlaylist returns the ordered entries of a remote playlist,
	// capped at the implementation's listing limit.
	ListPlaylist(ctx context.Context, url string) ([]RemoteEntry, error)
}
