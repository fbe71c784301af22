package usecase_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestTokenize(t *testing.T) {
	gt.Value(t, usecase.Tokenize("I LOVE elephants, so much!")).Equal([]string{"i", "love", "elephants", "so", "much"})
	gt.Array(t, usecase.Tokenize("  ?! ")).Length(0)
}

func TestMatchWord(t *testing.T) {
	testCases := []struct {
		token, word string
		expected    bool
	}{
		{"love", "love", true},
		{"loves", "love", true},
		{"loved", "love", true},
		{"loving", "love", true},
		{"counting", "count", true},
		{"counted", "count", true},
		{"dinosaurs", "dinosaur", true},
		{"boxes", "box", true},
		{"lovely", "love", false},
		{"card", "car", false},
		{"cat", "category", false},
	}

	for _, tc := range testCases {
		t.Run(tc.token+"/"+tc.word, func(t *testing.T) {
			gt.Value(t, usecase.MatchWord(tc.token, tc.word)).Equal(tc.expected)
		})
	}
}

func TestTruncateQuote(t *testing.T) {
	gt.Value(t, usecase.TruncateQuote("short", 100)).Equal("short")

	long := strings.Repeat("あ", 150)
	q := usecase.TruncateQuote(long, 100)
	gt.Value(t, utf8.RuneCountInString(q)).Equal(103)
	gt.Bool(t, strings.HasSuffix(q, "...")).True()
}

func TestDetectEmotion(t *testing.T) {
	testCases := []struct {
		text     string
		emotion  string
		detected bool
	}{
		{"I am so happy today", "happy", true},
		{"I was crying all night", "sad", true},
		{"my brother made me mad", "angry", true},
		{"the thunder was scary and I was afraid", "scared", true},
		{"so sleepy", "tired", true},
		{"I am sad but also excited", "happy", true},
		{"what is a volcano", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			emotion, ok := usecase.DetectEmotion(tc.text)
			gt.Value(t, ok).Equal(tc.detected)
			gt.Value(t, emotion).Equal(tc.emotion)
		})
	}
}

func TestTagConcepts(t *testing.T) {
	lexicon := map[string][]string{
		"animals": {"elephant", "dog"},
		"food":    {"ice cream"},
	}

	gt.Value(t, usecase.TagConcepts(lexicon, "I love elephants and ice cream")).
		Equal([]string{"elephant", "ice cream", "animals", "food"})
	gt.Array(t, usecase.TagConcepts(lexicon, "nothing here")).Length(0)
	gt.Array(t, usecase.TagConcepts(nil, "I love elephants")).Length(0)
}
