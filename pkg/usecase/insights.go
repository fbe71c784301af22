package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
)

const (
	maxInterestInsights = 5
	fullConfidenceAt    = 10
)

func insightConfidence(support int) float64 {
	return math.Min(1, float64(support)/fullConfidenceAt)
}

// deriveInsights finds patterns supported by at least minSupport distinct
// memories. Output order is deterministic: recurring interests by support,
// then emotional patterns in emotion priority order, then learning engagement.
func deriveInsights(memories []*model.Memory, minSupport int) []model.Insight {
	var insights []model.Insight
	insights = append(insights, recurringInterests(memories, minSupport)...)
	insights = append(insights, emotionalPatterns(memories, minSupport)...)
	if in, ok := learningEngagement(memories, minSupport); ok {
		insights = append(insights, in)
	}
	return insights
}

func recurringInterests(memories []*model.Memory, minSupport int) []model.Insight {
	support := make(map[string][]model.MemoryID)
	for _, m := range memories {
		seen := make(map[string]struct{})
		for _, c := range m.Metadata.Concepts {
			if _, ok := seen[c]; ok || c == "" {
				continue
			}
			seen[c] = struct{}{}
			support[c] = append(support[c], m.ID)
		}
	}

	concepts := make([]string, 0, len(support))
	for c, ids := range support {
		if len(ids) >= minSupport {
			concepts = append(concepts, c)
		}
	}
	sort.Slice(concepts, func(i, j int) bool {
		a, b := concepts[i], concepts[j]
		if len(support[a]) != len(support[b]) {
			return len(support[a]) > len(support[b])
		}
		return a < b
	})
	if len(concepts) > maxInterestInsights {
		concepts = concepts[:maxInterestInsights]
	}

	insights := make([]model.Insight, 0, len(concepts))
	for _, c := range concepts {
		ids := support[c]
		insights = append(insights, model.Insight{
			Pattern:     types.InsightRecurringInterest,
			Subject:     c,
			Description: fmt.Sprintf("Child shows recurring interest in %s (%d memories)", c, len(ids)),
			Confidence:  insightConfidence(len(ids)),
			Recommendations: []string{
				fmt.Sprintf("Weave %s into stories and examples", c),
				fmt.Sprintf("Suggest a new activity about %s", c),
			},
			SupportingMemoryIDs: ids,
		})
	}
	return insights
}

func emotionalPatterns(memories []*model.Memory, minSupport int) []model.Insight {
	support := make(map[types.Emotion][]model.MemoryID)
	for _, m := range memories {
		if m.Type != types.MemoryTypeEmotional {
			continue
		}
		d, ok := m.Metadata.Details.(model.EmotionalDetails)
		if !ok || !d.Emotion.IsValid() {
			continue
		}
		support[d.Emotion] = append(support[d.Emotion], m.ID)
	}

	var insights []model.Insight
	for _, e := range types.AllEmotions() {
		ids := support[e]
		if len(ids) < minSupport {
			continue
		}

		var recommendations []string
		if e.Tone() == types.EmotionalTonePositive {
			recommendations = []string{
				"Celebrate the moments that make the child " + string(e),
				"Revisit activities linked to these moments",
			}
		} else {
			recommendations = []string{
				"Check in gently when the child seems " + string(e),
				"Offer a calming activity or a comforting story",
			}
		}

		insights = append(insights, model.Insight{
			Pattern:             types.InsightEmotionalPattern,
			Subject:             string(e),
			Description:         fmt.Sprintf("Child has often felt %s (%d memories)", e, len(ids)),
			Confidence:          insightConfidence(len(ids)),
			Recommendations:     recommendations,
			SupportingMemoryIDs: ids,
		})
	}
	return insights
}

func learningEngagement(memories []*model.Memory, minSupport int) (model.Insight, bool) {
	var ids []model.MemoryID
	questions := 0
	for _, m := range memories {
		if m.Type != types.MemoryTypeLearning {
			continue
		}
		ids = append(ids, m.ID)
		if d, ok := m.Metadata.Details.(model.LearningDetails); ok && d.Question {
			questions++
		}
	}
	if len(ids) < minSupport {
		return model.Insight{}, false
	}

	recommendations := []string{"Introduce slightly harder challenges"}
	if questions*2 >= len(ids) {
		recommendations = append(recommendations, "Answer with follow-up questions to keep curiosity going")
	} else {
		recommendations = append(recommendations, "Invite the child to ask questions")
	}

	return model.Insight{
		Pattern:             types.InsightLearningEngagement,
		Subject:             string(types.MemoryTypeLearning),
		Description:         fmt.Sprintf("Child is actively engaged in learning (%d memories, %d questions)", len(ids), questions),
		Confidence:          insightConfidence(len(ids)),
		Recommendations:     recommendations,
		SupportingMemoryIDs: ids,
	}, true
}
