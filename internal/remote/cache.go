package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
)

// downloadTimeout bounds a full audio download. Streams longer than a
// typical track still finish well inside this.
const downloadTimeout = 5 * time.Minute

var (
	unsafeChars  = regexp.MustCompile(`[^\w\s-]`)
	dashCollapse = regexp.MustCompile(`[-\s]+`)
)

// CacheInfo summarizes the downloaded-stream cache.
type CacheInfo struct {
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
	Dir     string `json:"dir"`
}

// String renders the info for log output.
func (i CacheInfo) String() string {
	return fmt.Sprintf("%d files, %s, %s", i.Entries, humanize.Bytes(uint64(i.Bytes)), i.Dir)
}

// Cache stores remote streams downloaded as mp3 files so a repeated
// locator plays from disk instead of the network.
type Cache struct {
	dir string
}

// NewCache opens a stream cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stream cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Download fetches a locator's audio into the cache and returns the
// cached file path. A locator already present plays from disk without
// touching the network.
func (c *Cache) Download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	title, err := c.title(ctx, url)
	if err != nil {
		return "", err
	}

	path := filepath.Join(c.dir, sanitizeTitle(title)+".mp3")
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		log.Info("Using cached stream", "file", path)
		return path, nil
	}

	_, err = ytdlp.New().
		ExtractAudio().
		AudioFormat("mp3").
		Output(strings.TrimSuffix(path, ".mp3")+".%(ext)s").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("stream download failed: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("download produced no file: %w", err)
	}
	log.Info("Downloaded and cached stream", "file", path, "size", humanize.Bytes(uint64(info.Size())))
	return path, nil
}

// title resolves the locator's title without downloading anything.
func (c *Cache) title(ctx context.Context, url string) (string, error) {
	res, err := ytdlp.New().
		Print("%(title)s").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", url)
	if err != nil {
		return "", fmt.Errorf("title lookup failed: %w", err)
	}
	title := strings.TrimSpace(res.Stdout)
	if title == "" {
		return "", fmt.Errorf("%w: %s", ErrNoResults, url)
	}
	return title, nil
}

// sanitizeTitle turns a stream title into a safe filename stem.
func sanitizeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	s = dashCollapse.ReplaceAllString(strings.TrimSpace(s), "-")
	if s == "" {
		s = "stream"
	}
	return s
}

// Clear removes every cached stream file.
func (c *Cache) Clear() error {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.mp3"))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove %q: %w", f, err)
		}
	}
	log.Info("Stream cache cleared", "dir", c.dir)
	return nil
}

// Info reports the cache's file count and total size.
func (c *Cache) Info() (CacheInfo, error) {
	info := CacheInfo{Dir: c.dir}
	files, err := filepath.Glob(filepath.Join(c.dir, "*.mp3"))
	if err != nil {
		return info, err
	}
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			continue
		}
		info.Entries++
		info.Bytes += st.Size()
	}
	return info, nil
}
