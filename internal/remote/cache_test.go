package remote

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Morning Jazz Mix", "Morning-Jazz-Mix"},
		{"Lo-Fi / Chill  Beats!", "Lo-Fi-Chill-Beats"},
		{"  spaced   out  ", "spaced-out"},
		{"///", "stream"},
	}
	for _, tt := range tests {
		if got := sanitizeTitle(tt.title); got != tt.want {
			t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestNewCacheCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "streams")
	c, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("cache directory %q missing", dir)
	}
}

func TestCacheInfoAndClear(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	for _, f := range []string{"a.mp3", "b.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Non-mp3 files are not part of the cache.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Entries != 2 {
		t.Errorf("Entries = %d, want 2", info.Entries)
	}
	if info.Bytes != 10 {
		t.Errorf("Bytes = %d, want 10", info.Bytes)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	info, err = c.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Entries != 0 {
		t.Errorf("Entries after Clear = %d, want 0", info.Entries)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("Clear removed a non-mp3 file")
	}
}
