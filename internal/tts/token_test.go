package tts

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "pause between sentences",
			input: "Hello. <pause 500> World.",
			want: []Token{
				{Kind: TokenText, Text: "Hello."},
				{Kind: TokenPause, PauseMS: 500},
				{Kind: TokenText, Text: "World."},
			},
		},
		{
			name:  "no markers",
			input: "Just some text",
			want:  []Token{{Kind: TokenText, Text: "Just some text"}},
		},
		{
			name:  "leading pause",
			input: "<pause 100> after silence",
			want: []Token{
				{Kind: TokenPause, PauseMS: 100},
				{Kind: TokenText, Text: "after silence"},
			},
		},
		{
			name:  "adjacent pauses",
			input: "a <pause 100> <pause 200> b",
			want: []Token{
				{Kind: TokenText, Text: "a"},
				{Kind: TokenPause, PauseMS: 100},
				{Kind: TokenPause, PauseMS: 200},
				{Kind: TokenText, Text: "b"},
			},
		},
		{
			name:  "malformed marker reads as text",
			input: "wait <pause abc> here",
			want:  []Token{{Kind: TokenText, Text: "wait <pause abc> here"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "only a pause",
			input: "<pause 250>",
			want:  []Token{{Kind: TokenPause, PauseMS: 250}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"No terminator", []string{"No terminator"}},
		{"Trailing words. here", []string{"Trailing words.", "here"}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := SplitSentences(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitSentences(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestChunk(t *testing.T) {
	text := "A. B. C. D. E."
	got := Chunk(text, 2)
	want := []string{"A. B.", "C. D.", "E."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk(%q, 2) = %v, want %v", text, got, want)
	}

	if got := Chunk("", 2); got != nil {
		t.Errorf("Chunk of empty text = %v, want nil", got)
	}
	if got := Chunk("one sentence", 0); len(got) != 1 {
		t.Errorf("Chunk with zero bound = %v, want one chunk", got)
	}
}
