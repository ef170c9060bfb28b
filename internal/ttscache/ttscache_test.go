package ttscache

import (
	"errors"
	"os"
	"testing"
	"time"
)

func countingRender(calls *int) RenderFunc {
	return func(dst string) error {
		*calls++
		return os.WriteFile(dst, []byte("RIFFxxxx"), 0o644)
	}
}

func TestGetOrRenderCachesSecondCall(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	first, err := c.GetOrRender("hello world", "en", 1.0, countingRender(&calls))
	if err != nil {
		t.Fatalf("first GetOrRender() error: %v", err)
	}
	second, err := c.GetOrRender("hello world", "en", 1.0, countingRender(&calls))
	if err != nil {
		t.Fatalf("second GetOrRender() error: %v", err)
	}

	if calls != 1 {
		t.Errorf("render invoked %d times, want 1", calls)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss", stats)
	}
}

func TestKeyNormalizesWhitespace(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	if _, err := c.GetOrRender("hello   world", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrRender("  hello world ", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("render invoked %d times, want 1 (whitespace should not change the key)", calls)
	}
}

func TestKeyVariesByInputs(t *testing.T) {
	tests := []struct {
		name         string
		text, voice  string
		speed        float64
		wantDistinct bool
	}{
		{"same inputs", "hi", "en", 1.0, false},
		{"different text", "bye", "en", 1.0, true},
		{"different voice", "hi", "vi", 1.0, true},
		{"different speed", "hi", "en", 1.5, true},
	}

	base := key("hi", "en", 1.0)
	for _, tt := range tests {
		got := key(tt.text, tt.voice, tt.speed)
		if distinct := got != base; distinct != tt.wantDistinct {
			t.Errorf("%s: key distinct = %v, want %v", tt.name, distinct, tt.wantDistinct)
		}
	}
}

func TestDeletedArtifactReRenders(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	path, err := c.GetOrRender("gone", "en", 1.0, countingRender(&calls))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetOrRender("gone", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("render invoked %d times, want 2 after artifact deletion", calls)
	}
}

func TestRenderFailureNotCached(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("backend down")
	_, err = c.GetOrRender("oops", "en", 1.0, func(string) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrRender() error = %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed render, want 0", c.Len())
	}
}

func TestEvictionBound(t *testing.T) {
	c, err := New(t.TempDir(), 3)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		if _, err := c.GetOrRender(text, "en", 1.0, countingRender(&calls)); err != nil {
			t.Fatal(err)
		}
		// Keep creation times strictly ordered.
		time.Sleep(2 * time.Millisecond)
	}

	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if stats := c.Stats(); stats.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", stats.Evictions)
	}

	// The newest entries survive.
	before := calls
	if _, err := c.GetOrRender("five", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}
	if calls != before {
		t.Error("newest entry was evicted")
	}
}

func TestClear(t *testing.T) {
	c, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	path, err := c.GetOrRender("bye", "en", 1.0, countingRender(&calls))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact still on disk after Clear")
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	if _, err := c.GetOrRender("persist", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.Len(); got != 1 {
		t.Errorf("Len() after reopen = %d, want 1", got)
	}
	if _, err := reopened.GetOrRender("persist", "en", 1.0, countingRender(&calls)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("render invoked %d times, want 1 (reopened cache should hit)", calls)
	}
}
