// Package command defines the structured commands accepted from the
// home-automation webhook and dispatches them onto the player. Each
// command kind is its own type, so dispatch is an exhaustive type
// switch instead of a string fallthrough.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnknownCommand marks an unrecognized type field. Dropped at
	// the dispatch boundary, never surfaced to the transport.
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrMissingField marks a command without its required payload.
	ErrMissingField = errors.New("missing command field")

	// ErrMalformed marks a payload that is not valid JSON.
	ErrMalformed = errors.New("malformed command payload")
)

// Command is one playback instruction. The concrete types below are
// the full set.
type Command interface {
	isCommand()
}

// PlayMusic plays a single named track.
type PlayMusic struct {
	SongName string
}

// StopMusic stops all playback.
type StopMusic struct{}

// PlayPlaylist plays a named local playlist.
type PlayPlaylist struct {
	PlaylistName string
}

// PlayYouTubeSearch plays the top result for a search query.
type PlayYouTubeSearch struct {
	Query     string
	AudioOnly bool
}

// PlayYouTubeURL plays one video or music URL.
type PlayYouTubeURL struct {
	URL       string
	AudioOnly bool
}

// PlayYouTubePlaylist plays a remote playlist.
type PlayYouTubePlaylist struct {
	PlaylistURL string
	AudioOnly   bool
	Shuffle     bool
}

// SetVolume adjusts the output volume.
type SetVolume struct {
	Volume int
}

func (PlayMusic) isCommand()           {}
func (StopMusic) isCommand()           {}
func (PlayPlaylist) isCommand()        {}
func (PlayYouTubeSearch) isCommand()   {}
func (PlayYouTubeURL) isCommand()      {}
func (PlayYouTubePlaylist) isCommand() {}
func (SetVolume) isCommand()           {}

// envelope mirrors the wire format: a type tag plus the union of all
// type-specific fields.
type envelope struct {
	Type         string `json:"type"`
	SongName     string `json:"song_name"`
	PlaylistName string `json:"playlist_name"`
	Query        string `json:"query"`
	URL          string `json:"url"`
	PlaylistURL  string `json:"playlist_url"`
	AudioOnly    *bool  `json:"audio_only"`
	Shuffle      bool   `json:"shuffle"`
	Volume       *int   `json:"volume"`
}

// Parse decodes a raw webhook payload into a typed command.
func Parse(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	audioOnly := true
	if env.AudioOnly != nil {
		audioOnly = *env.AudioOnly
	}

	switch env.Type {
	case "play_music":
		if env.SongName == "" {
			return nil, fmt.Errorf("%w: song_name", ErrMissingField)
		}
		return PlayMusic{SongName: env.SongName}, nil
	case "stop_music":
		return StopMusic{}, nil
	case "play_playlist":
		if env.PlaylistName == "" {
			return nil, fmt.Errorf("%w: playlist_name", ErrMissingField)
		}
		return PlayPlaylist{PlaylistName: env.PlaylistName}, nil
	case "play_youtube_search":
		if env.Query == "" {
			return nil, fmt.Errorf("%w: query", ErrMissingField)
		}
		return PlayYouTubeSearch{Query: env.Query, AudioOnly: audioOnly}, nil
	case "play_youtube_url":
		if env.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		return PlayYouTubeURL{URL: env.URL, AudioOnly: audioOnly}, nil
	case "play_youtube_playlist":
		if env.PlaylistURL == "" {
			return nil, fmt.Errorf("%w: playlist_url", ErrMissingField)
		}
		return PlayYouTubePlaylist{PlaylistURL: env.PlaylistURL, AudioOnly: audioOnly, Shuffle: env.Shuffle}, nil
	case "volume":
		volume := 50
		if env.Volume != nil {
			volume = *env.Volume
		}
		return SetVolume{Volume: volume}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}

// Player is the playback surface commands act on.
type Player interface {
	PlayTrack(name string) error
	PlayPlaylist(name string) error
	PlayRemoteSearch(ctx context.Context, query string, audioOnly bool) error
	PlayRemoteURL(url string, audioOnly bool) error
	PlayRemotePlaylist(ctx context.Context, url string, audioOnly, shuffle bool) error
	Stop() error
	SetVolume(v int) int
}

// Dispatcher routes typed commands onto a player.
type Dispatcher struct {
	player Player
}

// NewDispatcher wires a dispatcher to its player.
func NewDispatcher(player Player) *Dispatcher {
	return &Dispatcher{player: player}
}

// HandleRaw parses and dispatches a webhook payload. Malformed and
// unknown commands are logged and dropped without touching playback
// state; only genuine operation failures propagate.
func (d *Dispatcher) HandleRaw(ctx context.Context, raw []byte) error {
	cmd, err := Parse(raw)
	if err != nil {
		log.Warn("Dropping bad command", "err", err)
		return nil
	}
	return d.Dispatch(ctx, cmd)
}

// Dispatch executes one typed command.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case PlayMusic:
		return d.player.PlayTrack(c.SongName)
	case StopMusic:
		return d.player.Stop()
	case PlayPlaylist:
		return d.player.PlayPlaylist(c.PlaylistName)
	case PlayYouTubeSearch:
		return d.player.PlayRemoteSearch(ctx, c.Query, c.AudioOnly)
	case PlayYouTubeURL:
		return d.player.PlayRemoteURL(c.URL, c.AudioOnly)
	case PlayYouTubePlaylist:
		return d.player.PlayRemotePlaylist(ctx, c.PlaylistURL, c.AudioOnly, c.Shuffle)
	case SetVolume:
		d.player.SetVolume(c.Volume)
		return nil
	default:
		// Unreachable for commands built through Parse.
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}
