package tts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWavRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	format := wavFormat{SampleRate: 22050, Channels: 1, BitsPerSample: 16}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	if err := writeWAV(path, format, data); err != nil {
		t.Fatalf("writeWAV() error: %v", err)
	}

	gotFormat, gotData, err := readWAV(path)
	if err != nil {
		t.Fatalf("readWAV() error: %v", err)
	}
	if gotFormat != format {
		t.Errorf("format = %+v, want %+v", gotFormat, format)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("data = %v, want %v", gotData, data)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wave file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readWAV(path); err == nil {
		t.Error("readWAV() accepted garbage input")
	}
}

func TestSilenceLength(t *testing.T) {
	format := wavFormat{SampleRate: 22050, Channels: 1, BitsPerSample: 16}

	got := silence(format, 500)
	want := 22050 / 2 * 2 // half a second of 16-bit mono frames
	if len(got) != want {
		t.Errorf("silence(500ms) = %d bytes, want %d", len(got), want)
	}

	stereo := wavFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
	got = silence(stereo, 250)
	want = 44100 / 4 * 4
	if len(got) != want {
		t.Errorf("silence(250ms stereo) = %d bytes, want %d", len(got), want)
	}

	for _, b := range silence(format, 10) {
		if b != 0 {
			t.Fatal("silence contains non-zero samples")
		}
	}
}
