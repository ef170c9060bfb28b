// Package library resolves track names and playlist definitions
// against the local music directories on disk.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
)

// ErrTrackNotFound is returned when no file in the library matches a
// requested track name.
var ErrTrackNotFound = errors.New("track not found")

// supportedExtensions are tried, in order, for an exact-name match
// before falling back to a library scan.
var supportedExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a"}

// Resolver maps track names to files under the music directory and
// loads playlist definitions. Lookups and playlist loads are cached;
// Watch invalidates the caches when the directories change.
type Resolver struct {
	musicDir     string
	playlistsDir string

	mu        sync.RWMutex
	stems     []string
	playlists map[string][]string

	watcher *fsnotify.Watcher
}

var _ mtypes.TrackResolver = (*Resolver)(nil)

// NewResolver creates a resolver over the given music and playlist
// directories.
func NewResolver(musicDir, playlistsDir string) *Resolver {
	return &Resolver{
		musicDir:     musicDir,
		playlistsDir: playlistsDir,
		playlists:    make(map[string][]string),
	}
}

// Find resolves a track name to a playable file path. An exact match
// against the supported extensions wins; otherwise a case-insensitive
// substring scan over the whole library returns the first hit. Scan
// order follows directory enumeration and is not guaranteed stable
// across platforms.
func (r *Resolver) Find(name string) (string, error) {
	for _, ext := range supportedExtensions {
		path := filepath.Join(r.musicDir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	needle := strings.ToLower(name)
	var found string
	err := filepath.WalkDir(r.musicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if strings.Contains(strings.ToLower(stem), needle) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err == nil && found != "" {
		return found, nil
	}

	if suggestion := r.suggest(name); suggestion != "" {
		log.Warn("Track not found", "name", name, "did_you_mean", suggestion)
	} else {
		log.Warn("Track not found", "name", name)
	}
	return "", fmt.Errorf("%w: %s", ErrTrackNotFound, name)
}

// suggest returns the closest library entry to a missed lookup, or ""
// when nothing comes close. Only used for log output.
func (r *Resolver) suggest(name string) string {
	stems := r.libraryStems()
	matches := fuzzy.Find(name, stems)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// libraryStems returns the cached set of track stems, scanning the
// music directory on first use.
func (r *Resolver) libraryStems() []string {
	r.mu.RLock()
	stems := r.stems
	r.mu.RUnlock()
	if stems != nil {
		return stems
	}

	stems = []string{}
	_ = filepath.WalkDir(r.musicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		for _, supported := range supportedExtensions {
			if ext == supported {
				stems = append(stems, strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
				break
			}
		}
		return nil
	})

	r.mu.Lock()
	r.stems = stems
	r.mu.Unlock()
	return stems
}

// LoadPlaylist reads a named playlist definition. A missing or
// malformed definition yields an empty list; the caller decides how to
// report that. Results are cached until Invalidate.
func (r *Resolver) LoadPlaylist(name string) []string {
	r.mu.RLock()
	cached, ok := r.playlists[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	path := filepath.Join(r.playlistsDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error("Failed to read playlist", "name", name, "err", err)
		}
		return nil
	}

	var def struct {
		Songs []string `json:"songs"`
	}
	if err := json.Unmarshal(data, &def); err != nil {
		log.Error("Malformed playlist definition", "name", name, "err", err)
		return nil
	}

	r.mu.Lock()
	r.playlists[name] = def.Songs
	r.mu.Unlock()
	return def.Songs
}

// Invalidate drops the cached library index and playlist definitions.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.stems = nil
	r.playlists = make(map[string][]string)
	r.mu.Unlock()
}

// Watch starts invalidating the caches on filesystem changes under the
// music and playlist directories. Stop it with Close.
func (r *Resolver) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range []string{r.musicDir, r.playlistsDir} {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
					log.Debug("Library changed, dropping caches", "path", event.Name)
					r.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Library watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Close stops the filesystem watcher, if running.
func (r *Resolver) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}
