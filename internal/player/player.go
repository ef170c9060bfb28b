// Package player is the top-level playback arbiter. A Controller owns
// the single live session and the playlist queue, serializes every
// command, and drives queue transitions from session exit events.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
	"github.com/dgnsrekt/mediahub/internal/proc"
	"github.com/dgnsrekt/mediahub/internal/queue"
	"github.com/dgnsrekt/mediahub/internal/remote"
)

var (
	// ErrPlaylistNotFound is returned when a playlist definition is
	// missing or resolves to no tracks.
	ErrPlaylistNotFound = errors.New("playlist not found or empty")

	// ErrInvalidLocator is returned for a remote URL that does not
	// match any supported pattern.
	ErrInvalidLocator = errors.New("invalid remote locator")
)

// Playback is one live session tree: a single decoder process or a
// fetcher/decoder pipeline. proc.Session and proc.Pipeline both
// satisfy it.
type Playback interface {
	Start(ctx context.Context) error
	Done() <-chan struct{}
	ExitReason() mtypes.ExitReason
	State() mtypes.SessionState
	Stop(grace time.Duration) error
	Pause() error
	Resume() error
}

// Factory builds playback sessions. Swapped out in tests.
type Factory interface {
	Local(path string) Playback
	Remote(url string, audioOnly bool) Playback
}

// decoderCandidate is one local playback tool, probed in rank order.
type decoderCandidate struct {
	name string
	args func(path string) []string
}

var (
	mp3Decoders = []decoderCandidate{
		{"mpg123", func(p string) []string { return []string{"-q", p} }},
		{"ffplay", func(p string) []string { return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p} }},
		{"mpv", func(p string) []string { return []string{"--no-video", "--really-quiet", p} }},
	}
	pcmDecoders = []decoderCandidate{
		{"aplay", func(p string) []string { return []string{p} }},
		{"ffplay", func(p string) []string { return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p} }},
		{"paplay", func(p string) []string { return []string{p} }},
	}
)

// execFactory spawns the real external tools.
type execFactory struct{}

func (execFactory) Local(path string) Playback {
	candidates := pcmDecoders
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		candidates = mp3Decoders
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(c.name); err == nil {
			return proc.NewSession(c.name, c.args(path)...)
		}
	}
	// Nothing on PATH; the session start reports the real error.
	first := candidates[0]
	return proc.NewSession(first.name, first.args(path)...)
}

func (execFactory) Remote(url string, audioOnly bool) Playback {
	fetcherName, fetcherArgs := remote.FetchArgs(url, audioOnly)
	decoderName, decoderArgs := remote.DecoderArgs(audioOnly)
	return proc.NewPipeline(
		proc.NewSession(fetcherName, fetcherArgs...),
		proc.NewSession(decoderName, decoderArgs...),
	)
}

// Config carries the controller's collaborators and tunables.
type Config struct {
	Resolver mtypes.TrackResolver
	Lister   mtypes.RemoteLister

	// Factory builds sessions; nil means spawning real processes.
	Factory Factory

	// Grace bounds the terminate-to-kill escalation on stop.
	Grace time.Duration
}

// Controller exposes all playback operations. Every command is
// serialized under one mutex, and each new session gets a fresh
// generation so a stale exit event from a replaced session cannot
// corrupt the queue.
type Controller struct {
	resolver mtypes.TrackResolver
	lister   mtypes.RemoteLister
	factory  Factory
	grace    time.Duration

	// baseCtx outlives any single command; sessions must not die with
	// the HTTP request that started them.
	baseCtx context.Context

	mu         sync.Mutex
	queue      *queue.Queue
	session    Playback
	generation uint64
	current    mtypes.Track
	playing    bool
	paused     bool
	fromQueue  bool
	volume     int
}

// NewController builds a controller. ctx bounds the lifetime of every
// session the controller ever starts.
func NewController(ctx context.Context, cfg Config) *Controller {
	factory := cfg.Factory
	if factory == nil {
		factory = execFactory{}
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = proc.DefaultGrace
	}
	return &Controller{
		resolver: cfg.Resolver,
		lister:   cfg.Lister,
		factory:  factory,
		grace:    grace,
		baseCtx:  ctx,
		queue:    queue.New(),
		volume:   50,
	}
}

// PlayTrack resolves a single track by name and plays it. The loaded
// playlist, if any, is left alone.
func (c *Controller) PlayTrack(name string) error {
	path, err := c.resolver.Find(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	track := mtypes.Track{Name: name, Locator: path, Kind: mtypes.SourceLocal}
	if err := c.startLocked(c.factory.Local(path), track, false); err != nil {
		return err
	}
	log.Info("Playing track", "name", name)
	return nil
}

// PlayPlaylist loads a named playlist into the queue and starts it.
func (c *Controller) PlayPlaylist(name string) error {
	names := c.resolver.LoadPlaylist(name)
	if len(names) == 0 {
		return fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
	}

	tracks := make([]mtypes.Track, len(names))
	for i, n := range names {
		tracks[i] = mtypes.Track{Name: n, Kind: mtypes.SourceLocal}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Load(tracks)
	if err := c.startCurrentLocked(); err != nil {
		return err
	}
	log.Info("Playing playlist", "name", name, "tracks", len(tracks))
	return nil
}

// PlayRemoteSearch plays the top result for a search query.
func (c *Controller) PlayRemoteSearch(ctx context.Context, query string, audioOnly bool) error {
	entry, err := c.lister.Search(ctx, query)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	track := mtypes.Track{Name: entry.Title, Locator: entry.URL, Kind: mtypes.SourceRemote, AudioOnly: audioOnly}
	if err := c.startLocked(c.factory.Remote(entry.URL, audioOnly), track, false); err != nil {
		return err
	}
	log.Info("Playing search result", "query", query, "title", entry.Title)
	return nil
}

// PlayRemoteURL plays one remote locator directly.
func (c *Controller) PlayRemoteURL(url string, audioOnly bool) error {
	if !remote.IsVideoURL(url) {
		return fmt.Errorf("%w: %s", ErrInvalidLocator, url)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	track := mtypes.Track{Name: url, Locator: url, Kind: mtypes.SourceRemote, AudioOnly: audioOnly}
	if err := c.startLocked(c.factory.Remote(url, audioOnly), track, false); err != nil {
		return err
	}
	log.Info("Playing remote URL", "url", url)
	return nil
}

// PlayRemotePlaylist lists a remote playlist and loads it into the
// queue, optionally shuffled.
func (c *Controller) PlayRemotePlaylist(ctx context.Context, url string, audioOnly, shuffle bool) error {
	if !remote.IsPlaylistURL(url) {
		return fmt.Errorf("%w: %s", ErrInvalidLocator, url)
	}
	entries, err := c.lister.ListPlaylist(ctx, url)
	if err != nil {
		return err
	}
	if shuffle {
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	}

	tracks := make([]mtypes.Track, len(entries))
	for i, e := range entries {
		tracks[i] = mtypes.Track{Name: e.Title, Locator: e.URL, Kind: mtypes.SourceRemote, AudioOnly: audioOnly}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Load(tracks)
	if err := c.startCurrentLocked(); err != nil {
		return err
	}
	log.Info("Playing remote playlist", "url", url, "tracks", len(tracks))
	return nil
}

// Stop tears down the live session. The loaded playlist stays in
// place so Next and Previous keep working; only a fresh load replaces
// it. Safe when nothing is playing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	return nil
}

// Pause suspends the current session.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.playing || c.paused {
		return nil
	}
	if err := c.session.Pause(); err != nil {
		return err
	}
	c.paused = true
	log.Info("Playback paused")
	return nil
}

// Resume continues a paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || !c.paused {
		return nil
	}
	if err := c.session.Resume(); err != nil {
		return err
	}
	c.paused = false
	log.Info("Playback resumed")
	return nil
}

// Next moves the queue forward one track and plays it. A no-op with no
// loaded playlist.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Next() {
		return nil
	}
	return c.startCurrentLocked()
}

// Previous moves the queue back one track and plays it. A no-op with
// no loaded playlist.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Previous() {
		return nil
	}
	return c.startCurrentLocked()
}

// SetVolume clamps v to [0,100] and returns the applied value.
func (c *Controller) SetVolume(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	c.volume = v
	log.Info("Volume set", "volume", v)
	return v
}

// ToggleShuffle flips shuffle mode, applied at the next playlist load.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := c.queue.ToggleShuffle()
	log.Info("Shuffle mode", "on", on)
	return on
}

// ToggleRepeat flips repeat mode.
func (c *Controller) ToggleRepeat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := c.queue.ToggleRepeat()
	log.Info("Repeat mode", "on", on)
	return on
}

// Status reports a snapshot of the player state.
func (c *Controller) Status() mtypes.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := mtypes.Status{
		IsPlaying:      c.playing && !c.paused,
		Volume:         c.volume,
		ShuffleMode:    c.queue.Shuffle(),
		RepeatMode:     c.queue.Repeat(),
		PlaylistLength: c.queue.Len(),
		CurrentIndex:   c.queue.Index(),
	}
	switch {
	case c.playing:
		status.CurrentSong = c.current.Name
	default:
		if track, ok := c.queue.Current(); ok {
			status.CurrentSong = track.Name
		}
	}
	return status
}

// startLocked replaces the live session with a new one. The previous
// session is fully stopped first, so at most one session tree is ever
// alive. Caller holds c.mu.
func (c *Controller) startLocked(session Playback, track mtypes.Track, fromQueue bool) error {
	c.stopLocked()

	if err := session.Start(c.baseCtx); err != nil {
		return err
	}

	c.generation++
	c.session = session
	c.current = track
	c.playing = true
	c.paused = false
	c.fromQueue = fromQueue

	gen := c.generation
	go func() {
		<-session.Done()
		c.onSessionExit(gen, session.ExitReason())
	}()
	return nil
}

// stopLocked tears down the live session, bumping the generation so
// its exit event is discarded as stale. Caller holds c.mu.
func (c *Controller) stopLocked() {
	if c.session == nil {
		return
	}
	c.generation++
	if err := c.session.Stop(c.grace); err != nil {
		log.Warn("Session stop failed", "err", err)
	}
	c.session = nil
	c.playing = false
	c.paused = false
	c.fromQueue = false
}

// startCurrentLocked plays the track at the queue's current index,
// skipping unresolvable entries up to the queue's bound. Caller holds
// c.mu.
func (c *Controller) startCurrentLocked() error {
	for {
		track, ok := c.queue.Current()
		if !ok {
			c.stopLocked()
			return nil
		}

		session, resolveErr := c.sessionFor(&track)
		if resolveErr != nil {
			log.Warn("Skipping unresolvable track", "name", track.Name, "err", resolveErr)
			if c.queue.Skip() {
				continue
			}
			c.stopLocked()
			return resolveErr
		}

		if err := c.startLocked(session, track, true); err != nil {
			log.Warn("Skipping unplayable track", "name", track.Name, "err", err)
			if c.queue.Skip() {
				continue
			}
			return err
		}
		c.queue.ResetSkips()
		log.Debug("Queue playing", "name", track.Name, "index", c.queue.Index())
		return nil
	}
}

// sessionFor resolves a queued track into a startable session,
// filling in the local file path when needed.
func (c *Controller) sessionFor(track *mtypes.Track) (Playback, error) {
	if track.Kind == mtypes.SourceRemote {
		return c.factory.Remote(track.Locator, track.AudioOnly), nil
	}
	path, err := c.resolver.Find(track.Name)
	if err != nil {
		return nil, err
	}
	track.Locator = path
	return c.factory.Local(path), nil
}

// onSessionExit handles a session's exit event. Events from superseded
// generations are dropped; a natural end of a queued track advances
// the queue.
func (c *Controller) onSessionExit(gen uint64, reason mtypes.ExitReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		log.Debug("Ignoring stale session exit", "generation", gen)
		return
	}

	c.session = nil
	c.playing = false
	c.paused = false

	if reason != mtypes.ExitNatural || !c.fromQueue {
		return
	}
	if c.queue.AdvanceOnNaturalEnd() {
		if err := c.startCurrentLocked(); err != nil {
			log.Error("Failed to advance playlist", "err", err)
		}
		return
	}
	log.Info("Playlist finished")
}
