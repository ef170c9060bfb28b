// Package ttscache stores rendered speech artifacts on disk, keyed by
// a content hash of the synthesis inputs so identical requests replay
// the same file instead of rendering again.
package ttscache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// DefaultMaxEntries bounds the cache; the oldest artifact is evicted
// once the bound is reached.
const DefaultMaxEntries = 1000

// RenderFunc produces a speech artifact at the given path.
type RenderFunc func(dst string) error

// Stats summarizes cache activity.
type Stats struct {
	Entries   int
	Bytes     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// String renders the stats for log output.
func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %s, %d hits, %d misses, %d evictions",
		s.Entries, humanize.Bytes(uint64(s.Bytes)), s.Hits, s.Misses, s.Evictions)
}

type entry struct {
	Key       string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Cache is a content-addressed store of rendered speech artifacts.
// The index is guarded by a mutex, but the render step is deliberately
// outside it: two concurrent identical requests can both miss and both
// render (at-least-once, not exclusive-once).
type Cache struct {
	basePath   string
	maxEntries int

	mu    sync.Mutex
	index map[string]*entry
	stats Stats
}

// New opens a cache rooted at basePath, creating the directory and
// loading any persisted index. maxEntries <= 0 means DefaultMaxEntries.
func New(basePath string, maxEntries int) (*Cache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create speech cache directory: %w", err)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	c := &Cache{
		basePath:   basePath,
		maxEntries: maxEntries,
		index:      make(map[string]*entry),
	}
	if err := c.loadIndex(); err != nil {
		// Start over with an empty index.
		c.index = make(map[string]*entry)
	}
	return c, nil
}

// key hashes the synthesis inputs. Text is normalized by collapsing
// whitespace so incidental formatting differences share an artifact.
func key(text, voice string, speed float64) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(voice))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(speed, 'f', -1, 64)))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrRender returns the cached artifact for the inputs, invoking
// render only on a miss. The hit test is the artifact file actually
// existing on disk, so a deleted file re-renders even when indexed.
func (c *Cache) GetOrRender(text, voice string, speed float64, render RenderFunc) (string, error) {
	k := key(text, voice, speed)
	path := filepath.Join(c.basePath, k+".wav")

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.mu.Lock()
		c.stats.Hits++
		if _, ok := c.index[k]; !ok {
			// Artifact predates the index (or the index was lost).
			c.index[k] = &entry{Key: k, Path: path, Size: info.Size(), CreatedAt: info.ModTime()}
		}
		c.mu.Unlock()
		log.Debug("Speech cache hit", "key", k[:12])
		return path, nil
	}

	c.mu.Lock()
	c.stats.Misses++
	c.mu.Unlock()

	if err := render(path); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("render produced no artifact: %w", err)
	}

	c.mu.Lock()
	c.index[k] = &entry{Key: k, Path: path, Size: info.Size(), CreatedAt: time.Now()}
	for len(c.index) > c.maxEntries {
		c.evictOldest()
	}
	if err := c.saveIndex(); err != nil {
		log.Warn("Failed to persist speech cache index", "err", err)
	}
	c.mu.Unlock()

	log.Debug("Speech artifact cached", "key", k[:12], "size", humanize.Bytes(uint64(info.Size())))
	return path, nil
}

// evictOldest drops the entry with the earliest creation time. Caller
// holds c.mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, e := range c.index {
		if oldestKey == "" || e.CreatedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.CreatedAt
		}
	}
	if oldestKey == "" {
		return
	}
	e := c.index[oldestKey]
	os.Remove(e.Path)
	delete(c.index, oldestKey)
	c.stats.Evictions++
	log.Debug("Evicted speech artifact", "key", oldestKey[:12])
}

// Clear removes every cached artifact and resets the index.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.index {
		os.Remove(e.Path)
	}
	c.index = make(map[string]*entry)
	return c.saveIndex()
}

// Len reports the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = len(c.index)
	for _, e := range c.index {
		stats.Bytes += e.Size
	}
	return stats
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.basePath, "cache.index")
}

func (c *Cache) loadIndex() error {
	file, err := os.Open(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&c.index)
}

// saveIndex writes the index atomically. Caller holds c.mu.
func (c *Cache) saveIndex() error {
	tempPath := c.indexPath() + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(c.index)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, c.indexPath())
}
