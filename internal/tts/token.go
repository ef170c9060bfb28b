package tts

import (
	"regexp"
	"strconv"
	"strings"
)

// TokenKind distinguishes speakable text from explicit pauses.
type TokenKind int

const (
	// TokenText is a speakable text segment.
	TokenText TokenKind = iota

	// TokenPause is an explicit silence of a given duration.
	TokenPause
)

// Token is one element of a parsed speech request: either a text
// segment or a pause with a millisecond duration.
type Token struct {
	Kind    TokenKind
	Text    string
	PauseMS int
}

var pauseMarker = regexp.MustCompile(`<pause\s+(\d+)>`)

// Tokenize splits input on <pause N> markers into an ordered sequence
// of text and pause tokens. Empty text between adjacent markers is
// dropped; a malformed marker is read as plain text.
func Tokenize(input string) []Token {
	var tokens []Token

	appendText := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			tokens = append(tokens, Token{Kind: TokenText, Text: s})
		}
	}

	last := 0
	for _, loc := range pauseMarker.FindAllStringSubmatchIndex(input, -1) {
		appendText(input[last:loc[0]])
		ms, err := strconv.Atoi(input[loc[2]:loc[3]])
		if err == nil && ms > 0 {
			tokens = append(tokens, Token{Kind: TokenPause, PauseMS: ms})
		}
		last = loc[1]
	}
	appendText(input[last:])

	return tokens
}

var sentenceEnd = regexp.MustCompile(`([.!?]+)(\s+|$)`)

// SplitSentences breaks a text segment into sentences on terminal
// punctuation. Text without any terminator comes back as one sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[last:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// Chunk groups a text segment into chunks of at most maxSentences
// sentences each, bounding per-render latency and memory.
func Chunk(text string, maxSentences int) []string {
	if maxSentences <= 0 {
		maxSentences = 1
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(sentences); start += maxSentences {
		end := start + maxSentences
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
	}
	return chunks
}
