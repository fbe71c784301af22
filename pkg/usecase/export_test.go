package usecase

import (
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
)

// Exported for testing
var (
	Tokenize         = tokenize
	MatchWord        = matchWord
	TruncateQuote    = truncateQuote
	GroupDuplicates  = groupDuplicates
	DeriveInsights   = deriveInsights
	StyleGuidance    = styleGuidance
	SortByImportance = sortByImportance
)

// MergeMemories is exported for testing
func MergeMemories(group []*model.Memory, now time.Time) (*model.Memory, []*model.Memory) {
	return mergeMemories(group, now)
}

// TagConcepts runs the concept tagger built from lexicon over text
func TagConcepts(lexicon map[string][]string, text string) []string {
	return newConceptTagger(lexicon).tag(tokenize(text))
}

// DetectEmotion is exported for testing
func DetectEmotion(text string) (string, bool) {
	e, ok := detectEmotion(tokenize(text))
	return string(e), ok
}
