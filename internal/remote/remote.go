// Package remote resolves YouTube locators: searching, listing
// playlist entries, and building the fetcher command line that streams
// audio or video bytes for a locator.
package remote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
)

// ErrNoResults is returned when a search or playlist listing yields
// nothing usable.
var ErrNoResults = errors.New("no results found")

// maxPlaylistItems caps how many playlist entries are listed.
const maxPlaylistItems = 20

// lookupTimeout bounds search and playlist-listing calls so a stalled
// network lookup cannot hang a playback command.
const lookupTimeout = 15 * time.Second

var videoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=`),
	regexp.MustCompile(`youtu\.be/`),
	regexp.MustCompile(`youtube\.com/embed/`),
	regexp.MustCompile(`music\.youtube\.com/watch\?v=`),
}

var playlistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/playlist\?list=`),
	regexp.MustCompile(`youtube\.com/watch\?.*list=`),
	regexp.MustCompile(`music\.youtube\.com/playlist\?list=`),
}

// IsVideoURL reports whether the locator looks like a playable video
// or music URL.
func IsVideoURL(url string) bool {
	for _, p := range videoPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether the locator looks like a playlist URL.
func IsPlaylistURL(url string) bool {
	for _, p := range playlistPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// Lister performs remote lookups with the native search client first
// and yt-dlp as the fallback path.
type Lister struct{}

var _ mtypes.RemoteLister = (*Lister)(nil)

// NewLister returns a Lister.
func NewLister() *Lister { return &Lister{} }

// Search returns the top result for a query.
func (l *Lister) Search(ctx context.Context, query string) (mtypes.RemoteEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err == nil && len(res.Results) > 0 {
		v := res.Results[0]
		return mtypes.RemoteEntry{
			Title: v.Title,
			URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
		}, nil
	}
	if err != nil {
		log.Debug("Native search failed, falling back to yt-dlp", "err", err)
	}

	entries, err := l.list(ctx, "ytsearch1:"+query, 1)
	if err != nil {
		return mtypes.RemoteEntry{}, err
	}
	return entries[0], nil
}

// ListPlaylist returns up to maxPlaylistItems entries of a playlist in
// playlist order.
func (l *Lister) ListPlaylist(ctx context.Context, url string) ([]mtypes.RemoteEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	return l.list(ctx, url, maxPlaylistItems)
}

// list runs a flat yt-dlp extraction and parses url/title pairs.
func (l *Lister) list(ctx context.Context, target string, limit int) ([]mtypes.RemoteEntry, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print("%(url)s\t%(title)s").
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp lookup failed: %w", err)
	}

	var entries []mtypes.RemoteEntry
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) < 2 || parts[0] == "" {
			continue
		}
		entries = append(entries, mtypes.RemoteEntry{URL: parts[0], Title: parts[1]})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, target)
	}
	return entries, nil
}

// FetchArgs builds the fetcher command that streams a locator's bytes
// to stdout.
func FetchArgs(url string, audioOnly bool) (string, []string) {
	if audioOnly {
		return "yt-dlp", []string{
			"--extract-audio",
			"--audio-format", "mp3",
			"--output", "-",
			url,
		}
	}
	return "yt-dlp", []string{
		"--format", "best[height<=480]",
		"--output", "-",
		url,
	}
}

// DecoderArgs builds the decoder command that consumes the fetcher's
// stream on stdin.
func DecoderArgs(audioOnly bool) (string, []string) {
	if audioOnly {
		return "mpg123", []string{"-q", "-"}
	}
	return "mpv", []string{"--vo=gpu", "--hwdec=auto", "-"}
}
