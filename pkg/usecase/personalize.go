package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/personalization.md
var personalizationPromptTmpl string

var personalizationPrompt = template.Must(template.New("personalization").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(personalizationPromptTmpl))

// Relationship levels at which the prompt becomes more personal
const (
	nameRelationshipLevel   = 2
	memoryRelationshipLevel = 4
	promptMemoryLimit       = 5
)

// PersonalizationInput is what the conversation handler knows about the
// child besides memories
type PersonalizationInput struct {
	Profile    model.ChildProfile
	Milestones []model.Milestone
	// Query is the child's latest message, used to pick relevant memories.
	// Empty selects the most recent ones.
	Query string
}

// PersonalizedPrompt is the rendered system prompt with the structured
// inputs it was built from
type PersonalizedPrompt struct {
	Text     string
	Context  *model.ChildContext
	Memories []*model.Memory
}

type PersonalizerUseCase struct {
	contexts  *ChildContextUseCase
	retrieval *RetrievalUseCase
	now       func() time.Time
}

func NewPersonalizerUseCase(contexts *ChildContextUseCase, retrieval *RetrievalUseCase, now func() time.Time) *PersonalizerUseCase {
	return &PersonalizerUseCase{
		contexts:  contexts,
		retrieval: retrieval,
		now:       now,
	}
}

type personalizationPromptData struct {
	UseName           bool
	Name              string
	Age               int
	Language          string
	Style             types.CommunicationStyle
	Confidence        int
	Curiosity         int
	RelationshipLevel int
	EmotionalState    types.Emotion
	Likes             []string
	Dislikes          []string
	Interests         []string
	Milestones        []model.Milestone
	Memories          []string
	Guidance          string
}

// BuildPrompt renders the system prompt for the child's next turn. Memory
// lookups are best effort: when they fail the prompt is built from the
// profile alone.
func (uc *PersonalizerUseCase) BuildPrompt(ctx context.Context, in PersonalizationInput) (*PersonalizedPrompt, error) {
	childID := in.Profile.ChildID
	if err := childID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidQuery, "invalid child ID", goerr.V(ChildIDKey, childID))
	}
	logger := logging.From(ctx)

	childCtx, err := uc.contexts.Get(ctx, childID)
	if err != nil {
		logger.Warn("build prompt without child context", "child_id", childID, "error", err.Error())
		childCtx = BuildChildContext(childID, nil, uc.now())
	}

	var memories []*model.Memory
	if childCtx.RelationshipLevel >= memoryRelationshipLevel {
		result, err := uc.retrieval.Retrieve(ctx, RetrievalQuery{
			ChildID: childID,
			Query:   in.Query,
			Limit:   promptMemoryLimit,
		})
		if err != nil {
			logger.Warn("build prompt without memories", "child_id", childID, "error", err.Error())
		} else {
			memories = result.Plain()
		}
	}

	data := personalizationPromptData{
		UseName:           in.Profile.Name != "" && childCtx.RelationshipLevel >= nameRelationshipLevel,
		Name:              in.Profile.Name,
		Age:               in.Profile.Age,
		Language:          in.Profile.Language,
		Style:             childCtx.PersonalityProfile.CommunicationStyle,
		Confidence:        childCtx.PersonalityProfile.Confidence,
		Curiosity:         childCtx.PersonalityProfile.Curiosity,
		RelationshipLevel: childCtx.RelationshipLevel,
		EmotionalState:    childCtx.EmotionalState,
		Likes:             in.Profile.Likes,
		Dislikes:          in.Profile.Dislikes,
		Interests:         childCtx.ActiveInterests,
		Milestones:        in.Milestones,
		Guidance:          styleGuidance(childCtx),
	}
	for _, m := range memories {
		data.Memories = append(data.Memories, m.Content)
	}

	var buf bytes.Buffer
	if err := personalizationPrompt.Execute(&buf, data); err != nil {
		return nil, goerr.Wrap(err, "failed to execute personalization prompt template")
	}

	return &PersonalizedPrompt{
		Text:     buf.String(),
		Context:  childCtx,
		Memories: memories,
	}, nil
}

func styleGuidance(c *model.ChildContext) string {
	var lines []string
	switch c.PersonalityProfile.CommunicationStyle {
	case types.CommunicationStyleNew:
		lines = append(lines, "This is a new friend. Introduce yourself and ask what they like.")
	case types.CommunicationStyleCurious:
		lines = append(lines, "The child loves to learn. Offer small facts and invite questions.")
	case types.CommunicationStyleExpressive:
		lines = append(lines, "The child shares feelings openly. Acknowledge feelings before moving on.")
	case types.CommunicationStyleEnthusiastic:
		lines = append(lines, "The child is enthusiastic. Match their energy and build on their favorite topics.")
	case types.CommunicationStyleReserved:
		lines = append(lines, "The child is quiet. Ask simple yes/no questions and give gentle encouragement.")
	default:
		lines = append(lines, "Mix playful chat with small learning moments.")
	}

	switch c.EmotionalState.Tone() {
	case types.EmotionalToneNegative:
		lines = append(lines, "The child recently felt "+string(c.EmotionalState)+". Be extra gentle and reassuring.")
	case types.EmotionalTonePositive:
		lines = append(lines, "The child has been feeling good. Keep the mood bright.")
	}

	if c.PersonalityProfile.Confidence <= 3 {
		lines = append(lines, "Praise effort often to build confidence.")
	}

	return strings.Join(lines, "\n")
}
