package usecase_test

import (
	"context"
	"slices"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func findByType(memories []*model.Memory, t types.MemoryType) *model.Memory {
	for _, m := range memories {
		if m.Type == t {
			return m
		}
	}
	return nil
}

func TestFormMemories_Interest(t *testing.T) {
	repo := newRepo()
	embedder := &hashEmbedder{}
	uc := usecase.New(repo, usecase.WithEmbedder(embedder))
	ctx := context.Background()

	result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
		ChildID:        "child-a",
		Text:           "I love elephants so much!",
		Role:           types.RoleUser,
		ConversationID: "conv-1",
	})
	gt.Array(t, result.Errors).Length(0)
	gt.Array(t, result.Memories).Length(1).Required()

	mem := result.Memories[0]
	gt.Value(t, mem.Type).Equal(types.MemoryTypeConversational)
	gt.Value(t, mem.Metadata.EmotionalTone).Equal(types.EmotionalTonePositive)
	gt.Value(t, mem.Content).Equal(`Child expressed interest: "I love elephants so much!"`)
	gt.Value(t, mem.Metadata.ConversationID).Equal("conv-1")
	gt.Bool(t, slices.Contains(mem.Metadata.Concepts, "elephant")).True()
	gt.Bool(t, slices.Contains(mem.Metadata.Concepts, "animals")).True()
	gt.Value(t, mem.Metadata.Hash).Equal(model.ContentHash(mem.Content))
	gt.Value(t, mem.Metadata.Details).Equal(model.Details(model.ConversationalDetails{Trigger: "love"}))
	gt.Array(t, mem.Embedding).Length(embeddingDim)
	gt.Bool(t, mem.Importance >= 0 && mem.Importance <= 1).True()

	stored := listAll(t, repo, "child-a")
	gt.Array(t, stored).Length(1)
	gt.Value(t, stored[0].ID).Equal(mem.ID)
}

func TestFormMemories_Encouragement(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)
	ctx := context.Background()

	t.Run("short quote is kept whole", func(t *testing.T) {
		result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-b",
			Text:    "Great job counting to 10!",
			Role:    types.RoleAssistant,
		})
		gt.Array(t, result.Memories).Length(1).Required()

		mem := result.Memories[0]
		gt.Value(t, mem.Type).Equal(types.MemoryTypeRelationship)
		gt.Value(t, mem.Metadata.EmotionalTone).Equal(types.EmotionalTonePositive)
		gt.String(t, mem.Content).Contains("Great job counting to 10!")

		d, ok := mem.Metadata.Details.(model.RelationshipDetails)
		gt.Bool(t, ok).True()
		gt.Value(t, d.Quote).Equal("Great job counting to 10!")
		gt.Bool(t, utf8.RuneCountInString(d.Quote) <= 103).True()
	})

	t.Run("long quote is truncated with ellipsis", func(t *testing.T) {
		long := "Wonderful! You are doing so well with your numbers, and I am really proud of how hard you tried today on every single one of them."
		result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-b",
			Text:    long,
			Role:    types.RoleAssistant,
		})
		gt.Array(t, result.Memories).Length(1).Required()

		d, ok := result.Memories[0].Metadata.Details.(model.RelationshipDetails)
		gt.Bool(t, ok).True()
		gt.Bool(t, utf8.RuneCountInString(d.Quote) <= 103).True()
		gt.String(t, d.Quote).Contains("...")
		gt.String(t, result.Memories[0].Content).Contains(d.Quote)
	})

	t.Run("assistant turns never produce child memories", func(t *testing.T) {
		result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-b",
			Text:    "I love learning why the sky is blue, I am so happy",
			Role:    types.RoleAssistant,
		})
		gt.Array(t, result.Memories).Length(0)
	})
}

func TestFormMemories_MultipleRules(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-c",
		Text:    "I like counting stars, it makes me happy",
		Role:    types.RoleUser,
	})
	gt.Array(t, result.Errors).Length(0)
	gt.Array(t, result.Memories).Length(3)

	gt.Value(t, findByType(result.Memories, types.MemoryTypeConversational)).NotNil()
	gt.Value(t, findByType(result.Memories, types.MemoryTypeLearning)).NotNil()

	emotional := findByType(result.Memories, types.MemoryTypeEmotional)
	gt.Value(t, emotional).NotNil().Required()
	gt.Value(t, emotional.Metadata.EmotionalTone).Equal(types.EmotionalTonePositive)
	d, ok := emotional.Metadata.Details.(model.EmotionalDetails)
	gt.Bool(t, ok).True()
	gt.Value(t, d.Emotion).Equal(types.EmotionHappy)
}

func TestFormMemories_EmotionFirstMatchWins(t *testing.T) {
	uc := usecase.New(newRepo())

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-d",
		Text:    "I was scared and sad at the doctor",
		Role:    types.RoleUser,
	})
	emotional := findByType(result.Memories, types.MemoryTypeEmotional)
	gt.Value(t, emotional).NotNil().Required()

	d, ok := emotional.Metadata.Details.(model.EmotionalDetails)
	gt.Bool(t, ok).True()
	gt.Value(t, d.Emotion).Equal(types.EmotionSad)
	gt.Value(t, emotional.Metadata.EmotionalTone).Equal(types.EmotionalToneNegative)
}

func TestFormMemories_NoRuleMatches(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-e",
		Text:    "The sky is blue",
		Role:    types.RoleUser,
	})
	gt.Array(t, result.Memories).Length(0)
	gt.Array(t, result.Errors).Length(0)
	gt.Array(t, listAll(t, repo, "child-e")).Length(0)
}

func TestFormMemories_EmbeddingFailure(t *testing.T) {
	for name, embedder := range map[string]interface {
		Embed(context.Context, string) (model.Embedding, error)
		Dimension() int
	}{
		"provider error": failingEmbedder{},
		"provider hangs": slowEmbedder{},
	} {
		t.Run(name, func(t *testing.T) {
			repo := newRepo()
			cfg := usecase.DefaultConfig()
			cfg.EmbeddingTimeout = 20 * time.Millisecond
			uc := usecase.New(repo, usecase.WithEmbedder(embedder), usecase.WithConfig(cfg))

			result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
				ChildID: "child-f",
				Text:    "I love dinosaurs",
				Role:    types.RoleUser,
			})
			gt.Array(t, result.Errors).Length(0)
			gt.Array(t, result.Memories).Length(1).Required()
			gt.Array(t, result.Memories[0].Embedding).Length(0)

			stored := listAll(t, repo, "child-f")
			gt.Array(t, stored).Length(1).Required()
			gt.Array(t, stored[0].Embedding).Length(0)
		})
	}
}

func TestFormMemories_StoreFailureIsolatedPerMemory(t *testing.T) {
	base := newRepo()
	repo := newFaultyRepository(base)
	repo.mem.failCreate = func(mem *model.Memory) bool {
		return mem.Type == types.MemoryTypeLearning
	}
	uc := usecase.New(repo)

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-g",
		Text:    "I love learning to count",
		Role:    types.RoleUser,
	})
	gt.Array(t, result.Errors).Length(1).Required()
	gt.Error(t, result.Errors[0]).Is(usecase.ErrStoreWriteFailure)
	gt.Array(t, result.Memories).Length(1).Required()
	gt.Value(t, result.Memories[0].Type).Equal(types.MemoryTypeConversational)

	stored := listAll(t, base, "child-g")
	gt.Array(t, stored).Length(1)
}

func TestFormMemories_ImportanceOverride(t *testing.T) {
	uc := usecase.New(newRepo())
	ctx := context.Background()

	testCases := []struct {
		name     string
		override float64
		expected float64
	}{
		{"within range", 0.25, 0.25},
		{"above range is clamped", 3.5, 1},
		{"below range is clamped", -1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
				ChildID:         "child-h",
				Text:            "I love trains",
				Role:            types.RoleUser,
				ImportanceScore: float64Ptr(tc.override),
			})
			gt.Array(t, result.Memories).Length(1).Required()
			gt.Value(t, result.Memories[0].Importance).Equal(tc.expected)
			gt.Value(t, result.Memories[0].Metadata.ImportanceScore).NotNil().Required()
			gt.Value(t, *result.Memories[0].Metadata.ImportanceScore).Equal(tc.expected)
		})
	}
}

func TestFormMemories_InvalidInput(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)

	testCases := []struct {
		name  string
		input usecase.TurnInput
	}{
		{"empty child", usecase.TurnInput{Text: "I love cats", Role: types.RoleUser}},
		{"bad child", usecase.TurnInput{ChildID: "../etc", Text: "I love cats", Role: types.RoleUser}},
		{"bad role", usecase.TurnInput{ChildID: "child-i", Text: "I love cats", Role: "system"}},
		{"blank text", usecase.TurnInput{ChildID: "child-i", Text: "  ", Role: types.RoleUser}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Error(t, tc.input.Validate())

			result := uc.Formation.FormMemories(context.Background(), tc.input)
			gt.Array(t, result.Memories).Length(0)
			gt.Array(t, result.Errors).Length(1)
		})
	}
}

func TestFormMemories_InvalidatesChildContext(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)
	ctx := context.Background()

	before, err := uc.ChildContext.Get(ctx, "child-j")
	gt.NoError(t, err).Required()
	gt.Value(t, before.WindowSize).Equal(0)

	uc.Formation.FormMemories(ctx, usecase.TurnInput{
		ChildID: "child-j",
		Text:    "I love dinosaurs",
		Role:    types.RoleUser,
	})

	after, err := uc.ChildContext.Get(ctx, "child-j")
	gt.NoError(t, err).Required()
	gt.Value(t, after.WindowSize).Equal(1)
}

func TestFormMemories_Preference(t *testing.T) {
	uc := usecase.New(newRepo())
	ctx := context.Background()

	t.Run("dislike is not an interest", func(t *testing.T) {
		result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-p",
			Text:    "I don't like broccoli",
			Role:    types.RoleUser,
		})
		gt.Array(t, result.Memories).Length(1).Required()

		mem := result.Memories[0]
		gt.Value(t, mem.Type).Equal(types.MemoryTypePreference)
		gt.Value(t, mem.Metadata.EmotionalTone).Equal(types.EmotionalToneNegative)
		gt.Value(t, mem.Metadata.Details).Equal(model.Details(model.PreferenceDetails{Subject: "broccoli", Likes: false}))
	})

	t.Run("favorite is both interest and preference", func(t *testing.T) {
		result := uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-p",
			Text:    "My favorite color is blue",
			Role:    types.RoleUser,
		})
		gt.Array(t, result.Memories).Length(2)
		gt.Value(t, findByType(result.Memories, types.MemoryTypeConversational)).NotNil()

		pref := findByType(result.Memories, types.MemoryTypePreference)
		gt.Value(t, pref).NotNil().Required()
		gt.Value(t, pref.Metadata.EmotionalTone).Equal(types.EmotionalTonePositive)
		gt.Value(t, pref.Metadata.Details).Equal(model.Details(model.PreferenceDetails{Subject: "color is blue", Likes: true}))
	})
}

func TestFormMemories_Routine(t *testing.T) {
	uc := usecase.New(newRepo())

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-r",
		Text:    "I always brush my teeth before bed",
		Role:    types.RoleUser,
	})
	gt.Array(t, result.Memories).Length(1).Required()

	mem := result.Memories[0]
	gt.Value(t, mem.Type).Equal(types.MemoryTypeBehavioral)
	gt.Value(t, mem.Metadata.Details).Equal(model.Details(model.BehavioralDetails{Pattern: "always"}))
}

func TestFormMemories_Tradition(t *testing.T) {
	t.Run("built-in tradition word", func(t *testing.T) {
		uc := usecase.New(newRepo())
		result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
			ChildID: "child-t",
			Text:    "We lit lamps for Diwali",
			Role:    types.RoleUser,
		})
		gt.Array(t, result.Memories).Length(1).Required()

		mem := result.Memories[0]
		gt.Value(t, mem.Type).Equal(types.MemoryTypeCultural)
		gt.Value(t, mem.Metadata.Details).Equal(model.Details(model.CulturalDetails{Tradition: "diwali"}))
		gt.Array(t, mem.Metadata.Concepts).Has("festivals")
	})

	t.Run("festival added to the lexicon", func(t *testing.T) {
		cfg := usecase.DefaultConfig()
		cfg.Concepts["festivals"] = append(cfg.Concepts["festivals"], "bihu")
		uc := usecase.New(newRepo(), usecase.WithConfig(cfg))

		result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
			ChildID: "child-t",
			Text:    "We danced at Bihu",
			Role:    types.RoleUser,
		})
		gt.Array(t, result.Memories).Length(1).Required()
		gt.Value(t, result.Memories[0].Metadata.Details).Equal(model.Details(model.CulturalDetails{Tradition: "bihu"}))
	})
}

func TestFormMemories_Sight(t *testing.T) {
	uc := usecase.New(newRepo())

	result := uc.Formation.FormMemories(context.Background(), usecase.TurnInput{
		ChildID: "child-v",
		Text:    "I can see you are holding a red ball!",
		Role:    types.RoleAssistant,
	})
	gt.Array(t, result.Memories).Length(1).Required()

	mem := result.Memories[0]
	gt.Value(t, mem.Type).Equal(types.MemoryTypeVisual)
	d, ok := mem.Metadata.Details.(model.VisualDetails)
	gt.Bool(t, ok).True()
	gt.Value(t, d.Description).Equal("I can see you are holding a red ball!")
	gt.Value(t, d.Objects).Equal([]string{"red", "ball"})
}
