package usecase

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
)

// turn is a conversation turn prepared for rule matching
type turn struct {
	text     string
	role     types.Role
	tokens   []string
	concepts []conceptEntry // lexicon entries found in text
}

// conceptWord returns the first matched lexicon word tagged topic
func (t *turn) conceptWord(topic string) (string, bool) {
	for _, e := range t.concepts {
		if e.tag == topic {
			return e.word, true
		}
	}
	return "", false
}

// conceptWords returns every matched lexicon word, without topic tags
func (t *turn) conceptWords() []string {
	var words []string
	for _, e := range t.concepts {
		if !slices.Contains(words, e.word) {
			words = append(words, e.word)
		}
	}
	return words
}

func newTurn(text string, role types.Role) *turn {
	text = strings.TrimSpace(text)
	return &turn{
		text:   text,
		role:   role,
		tokens: tokenize(text),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var inflections = []string{"", "s", "es", "ed", "ing"}

// matchWord reports whether token is word or a simple inflection of it
func matchWord(token, word string) bool {
	for _, suffix := range inflections {
		if token == word+suffix {
			return true
		}
	}
	// love -> loved, loving
	if stem, ok := strings.CutSuffix(word, "e"); ok {
		return token == word+"d" || token == stem+"ing"
	}
	return false
}

// keywords is an ordered set of words or multi-word phrases
type keywords []string

// find returns the first keyword, in list order, that occurs in tokens
func (k keywords) find(tokens []string) (string, bool) {
	for _, kw := range k {
		if containsPhrase(tokens, strings.Fields(kw)) {
			return kw, true
		}
	}
	return "", false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j, word := range phrase {
			if !matchWord(tokens[i+j], word) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

var (
	interestKeywords = keywords{"love", "like", "favorite", "favourite", "enjoy", "fun"}

	learningKeywords = keywords{
		"count", "learn", "teach", "why", "how", "what is", "explain",
		"number", "letter", "alphabet", "spell", "math",
	}

	// "don't" tokenizes to "don", "t"
	dislikeKeywords = keywords{"don t like", "dont like", "do not like", "hate", "dislike", "yucky", "yuck"}

	preferenceKeywords = keywords{"favorite", "favourite", "prefer", "rather"}

	routineKeywords = keywords{
		"every day", "every morning", "every night", "always", "usually",
		"bedtime", "before bed", "after school",
	}

	traditionKeywords = keywords{
		"festival", "diwali", "holi", "eid", "christmas", "pongal", "onam",
		"navratri", "rakhi", "temple", "tradition",
	}

	// culturalTopic is the concept tag whose lexicon words also count as traditions
	culturalTopic = "festivals"

	sightKeywords = keywords{"i can see", "i see", "you are showing", "you re showing", "you are holding", "you re holding"}

	encouragementKeywords = keywords{
		"great job", "good job", "well done", "wonderful", "proud", "amazing", "awesome",
	}

	// emotionKeywords is checked in types.AllEmotions order; the first emotion
	// with a matching word wins.
	emotionKeywords = map[types.Emotion]keywords{
		types.EmotionHappy:  {"happy", "excited", "glad", "yay", "joy"},
		types.EmotionSad:    {"sad", "cry", "cried", "upset", "unhappy", "lonely", "miss"},
		types.EmotionAngry:  {"angry", "mad", "annoyed", "frustrated"},
		types.EmotionScared: {"scared", "afraid", "frightened", "nervous", "worried"},
		types.EmotionTired:  {"tired", "sleepy", "exhausted"},
	}
)

// memoryDraft is what a rule produces before embedding and storage
type memoryDraft struct {
	memType    types.MemoryType
	content    string
	importance float64
	tone       types.EmotionalTone
	details    model.Details
}

// formationRule detects one kind of memory in a turn. match returns the
// keyword that fired; build turns it into a draft.
type formationRule struct {
	name  string
	role  types.Role
	match func(t *turn) (string, bool)
	build func(t *turn, trigger string) memoryDraft
}

// formationRules is evaluated in order for every turn. Each matching rule
// produces one memory.
var formationRules = []formationRule{
	{
		name: "interest",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			if _, ok := dislikeKeywords.find(t.tokens); ok {
				return "", false
			}
			return interestKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			return memoryDraft{
				memType:    types.MemoryTypeConversational,
				content:    fmt.Sprintf("Child expressed interest: %q", t.text),
				importance: 0.6,
				tone:       types.EmotionalTonePositive,
				details:    model.ConversationalDetails{Trigger: trigger},
			}
		},
	},
	{
		name: "learning",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			return learningKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			return memoryDraft{
				memType:    types.MemoryTypeLearning,
				content:    fmt.Sprintf("Child showed curiosity about learning: %q", t.text),
				importance: 0.7,
				tone:       types.EmotionalToneNeutral,
				details: model.LearningDetails{
					Trigger:  trigger,
					Question: isQuestion(t),
				},
			}
		},
	},
	{
		name: "emotion",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			if e, ok := detectEmotion(t.tokens); ok {
				return string(e), true
			}
			return "", false
		},
		build: func(t *turn, trigger string) memoryDraft {
			emotion := types.Emotion(trigger)
			importance := 0.6
			if emotion.Tone() == types.EmotionalToneNegative {
				importance = 0.75
			}
			return memoryDraft{
				memType:    types.MemoryTypeEmotional,
				content:    fmt.Sprintf("Child felt %s: %q", emotion, t.text),
				importance: importance,
				tone:       emotion.Tone(),
				details:    model.EmotionalDetails{Emotion: emotion, Trigger: t.text},
			}
		},
	},
	{
		name: "preference",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			if kw, ok := dislikeKeywords.find(t.tokens); ok {
				return kw, true
			}
			return preferenceKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			likes := !slices.Contains(dislikeKeywords, trigger)
			tone := types.EmotionalTonePositive
			verb := "likes"
			if !likes {
				tone = types.EmotionalToneNegative
				verb = "dislikes"
			}
			return memoryDraft{
				memType:    types.MemoryTypePreference,
				content:    fmt.Sprintf("Child %s: %q", verb, t.text),
				importance: 0.65,
				tone:       tone,
				details: model.PreferenceDetails{
					Subject: phraseTail(t.tokens, trigger),
					Likes:   likes,
				},
			}
		},
	},
	{
		name: "routine",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			return routineKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			return memoryDraft{
				memType:    types.MemoryTypeBehavioral,
				content:    fmt.Sprintf("Child described a routine: %q", t.text),
				importance: 0.5,
				tone:       types.EmotionalToneNeutral,
				details:    model.BehavioralDetails{Pattern: trigger},
			}
		},
	},
	{
		name: "tradition",
		role: types.RoleUser,
		match: func(t *turn) (string, bool) {
			if kw, ok := traditionKeywords.find(t.tokens); ok {
				return kw, true
			}
			// festival words added to the configured lexicon
			return t.conceptWord(culturalTopic)
		},
		build: func(t *turn, trigger string) memoryDraft {
			return memoryDraft{
				memType:    types.MemoryTypeCultural,
				content:    fmt.Sprintf("Child talked about %s: %q", trigger, t.text),
				importance: 0.7,
				tone:       types.EmotionalTonePositive,
				details:    model.CulturalDetails{Tradition: trigger},
			}
		},
	},
	{
		name: "sight",
		role: types.RoleAssistant,
		match: func(t *turn) (string, bool) {
			return sightKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			quote := truncateQuote(t.text, quoteLength)
			return memoryDraft{
				memType:    types.MemoryTypeVisual,
				content:    fmt.Sprintf("Appu saw on camera: %q", quote),
				importance: 0.55,
				tone:       types.EmotionalToneNeutral,
				details: model.VisualDetails{
					Description: quote,
					Objects:     t.conceptWords(),
				},
			}
		},
	},
	{
		name: "encouragement",
		role: types.RoleAssistant,
		match: func(t *turn) (string, bool) {
			return encouragementKeywords.find(t.tokens)
		},
		build: func(t *turn, trigger string) memoryDraft {
			quote := truncateQuote(t.text, quoteLength)
			return memoryDraft{
				memType:    types.MemoryTypeRelationship,
				content:    fmt.Sprintf("Appu encouraged the child: %q", quote),
				importance: 0.8,
				tone:       types.EmotionalTonePositive,
				details: model.RelationshipDetails{
					Interaction: "encouragement",
					Quote:       quote,
				},
			}
		},
	},
}

// phraseTail returns the words after the first occurrence of phrase, e.g.
// "favorite" in "my favorite color is blue" gives "color is blue"
func phraseTail(tokens []string, phrase string) string {
	words := strings.Fields(phrase)
	for i := 0; i+len(words) <= len(tokens); i++ {
		if containsPhrase(tokens[i:i+len(words)], words) {
			return strings.Join(tokens[i+len(words):], " ")
		}
	}
	return ""
}

// detectEmotion returns the first emotion, in priority order, whose lexicon
// matches tokens
func detectEmotion(tokens []string) (types.Emotion, bool) {
	for _, e := range types.AllEmotions() {
		if _, ok := emotionKeywords[e].find(tokens); ok {
			return e, true
		}
	}
	return "", false
}

func isQuestion(t *turn) bool {
	if strings.Contains(t.text, "?") {
		return true
	}
	if len(t.tokens) == 0 {
		return false
	}
	switch t.tokens[0] {
	case "why", "how", "what", "when", "where", "who", "can", "do", "does", "is", "are":
		return true
	}
	return false
}

// truncateQuote keeps the first n runes of s and appends "..." when cut
func truncateQuote(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRightFunc(string(runes[:n]), unicode.IsSpace) + "..."
}

// conceptTagger maps text to topic concepts through a lexicon
type conceptTagger struct {
	entries []conceptEntry
}

type conceptEntry struct {
	tag    string
	phrase []string
	word   string
}

func newConceptTagger(lexicon map[string][]string) *conceptTagger {
	tags := make([]string, 0, len(lexicon))
	for tag := range lexicon {
		tags = append(tags, tag)
	}
	slices.Sort(tags)

	tagger := &conceptTagger{}
	for _, tag := range tags {
		for _, word := range lexicon[tag] {
			word = strings.ToLower(strings.TrimSpace(word))
			if word == "" {
				continue
			}
			tagger.entries = append(tagger.entries, conceptEntry{
				tag:    strings.ToLower(tag),
				phrase: strings.Fields(word),
				word:   word,
			})
		}
	}
	return tagger
}

// match returns the lexicon entries that occur in tokens
func (c *conceptTagger) match(tokens []string) []conceptEntry {
	var found []conceptEntry
	for _, e := range c.entries {
		if containsPhrase(tokens, e.phrase) {
			found = append(found, e)
		}
	}
	return found
}

// tag returns the matched lexicon words followed by their topic tags
func (c *conceptTagger) tag(tokens []string) []string {
	return conceptTags(c.match(tokens))
}

func conceptTags(entries []conceptEntry) []string {
	var words, tags []string
	for _, e := range entries {
		words = append(words, e.word)
		tags = append(tags, e.tag)
	}
	return model.UnionConcepts(words, tags)
}
