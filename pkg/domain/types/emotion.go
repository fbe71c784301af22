package types

import "fmt"

// EmotionalTone is the coarse valence attached to a memory
type EmotionalTone string

const (
	EmotionalToneNone     EmotionalTone = ""
	EmotionalTonePositive EmotionalTone = "positive"
	EmotionalToneNeutral  EmotionalTone = "neutral"
	EmotionalToneNegative EmotionalTone = "negative"
)

// IsValid reports whether the tone is known. The empty tone is valid and means "not detected".
func (t EmotionalTone) IsValid() bool {
	switch t {
	case EmotionalToneNone,
		EmotionalTonePositive,
		EmotionalToneNeutral,
		EmotionalToneNegative:
		return true
	default:
		return false
	}
}

func (t EmotionalTone) String() string {
	return string(t)
}

// Emotion is a detected feeling label
type Emotion string

const (
	EmotionHappy  Emotion = "happy"
	EmotionSad    Emotion = "sad"
	EmotionAngry  Emotion = "angry"
	EmotionScared Emotion = "scared"
	EmotionTired  Emotion = "tired"
)

// AllEmotions returns emotions in detection priority order
func AllEmotions() []Emotion {
	return []Emotion{
		EmotionHappy,
		EmotionSad,
		EmotionAngry,
		EmotionScared,
		EmotionTired,
	}
}

func (e Emotion) IsValid() bool {
	switch e {
	case EmotionHappy, EmotionSad, EmotionAngry, EmotionScared, EmotionTired:
		return true
	default:
		return false
	}
}

func (e Emotion) String() string {
	return string(e)
}

// Tone maps an emotion to its valence
func (e Emotion) Tone() EmotionalTone {
	if e == EmotionHappy {
		return EmotionalTonePositive
	}
	if e.IsValid() {
		return EmotionalToneNegative
	}
	return EmotionalToneNone
}

// ParseEmotion parses a string into an Emotion
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(s)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid emotion: %s", s)
	}
	return e, nil
}
