package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestBuildPrompt_NewChild(t *testing.T) {
	uc := usecase.New(newRepo())

	prompt, err := uc.Personalizer.BuildPrompt(context.Background(), usecase.PersonalizationInput{
		Profile: model.ChildProfile{
			ChildID:  "child-a",
			Name:     "Meera",
			Age:      5,
			Language: "Hindi",
			Likes:    []string{"mangoes", "kites"},
		},
		Milestones: []model.Milestone{
			{Description: "Count to 20", Progress: 12, Target: 20},
		},
	})
	gt.NoError(t, err).Required()

	gt.Value(t, prompt.Context.PersonalityProfile.CommunicationStyle).Equal(types.CommunicationStyleNew)
	gt.Array(t, prompt.Memories).Length(0)
	gt.String(t, prompt.Text).Contains("in Hindi")
	gt.String(t, prompt.Text).Contains("Do not use their name yet")
	gt.Bool(t, strings.Contains(prompt.Text, "Meera")).False()
	gt.String(t, prompt.Text).Contains("Likes: mangoes, kites")
	gt.String(t, prompt.Text).Contains("Count to 20: 12/20")
	gt.String(t, prompt.Text).Contains("This is a new friend")
}

func TestBuildPrompt_CloseRelationship(t *testing.T) {
	repo := newRepo()
	uc := usecase.New(repo)
	ctx := context.Background()

	for i := range 5 {
		uc.Formation.FormMemories(ctx, usecase.TurnInput{
			ChildID: "child-b",
			Text:    fmt.Sprintf("Great job with puzzle number %d!", i),
			Role:    types.RoleAssistant,
		})
	}
	uc.Formation.FormMemories(ctx, usecase.TurnInput{
		ChildID: "child-b",
		Text:    "I love dinosaurs",
		Role:    types.RoleUser,
	})

	prompt, err := uc.Personalizer.BuildPrompt(ctx, usecase.PersonalizationInput{
		Profile: model.ChildProfile{ChildID: "child-b", Name: "Arjun"},
		Query:   "dinosaur",
	})
	gt.NoError(t, err).Required()

	gt.Bool(t, prompt.Context.RelationshipLevel >= 4).True()
	gt.String(t, prompt.Text).Contains("Name: Arjun")
	gt.Array(t, prompt.Memories).Length(1).Required()
	gt.String(t, prompt.Text).Contains(prompt.Memories[0].Content)
	gt.String(t, prompt.Text).Contains("Things you remember")
}

func TestBuildPrompt_DegradesWhenStoreFails(t *testing.T) {
	faulty := newFaultyRepository(newRepo())
	faulty.mem.failList = func(types.ChildID) bool { return true }
	uc := usecase.New(faulty)

	prompt, err := uc.Personalizer.BuildPrompt(context.Background(), usecase.PersonalizationInput{
		Profile: model.ChildProfile{ChildID: "child-c", Name: "Lin"},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, prompt.Context.WindowSize).Equal(0)
	gt.String(t, prompt.Text).Contains("You are Appu")
}

func TestBuildPrompt_InvalidChild(t *testing.T) {
	uc := usecase.New(newRepo())

	_, err := uc.Personalizer.BuildPrompt(context.Background(), usecase.PersonalizationInput{})
	gt.Error(t, err).Is(usecase.ErrInvalidQuery)
}

func TestStyleGuidance(t *testing.T) {
	c := &model.ChildContext{
		PersonalityProfile: model.PersonalityProfile{
			CommunicationStyle: types.CommunicationStyleReserved,
			Confidence:         2,
		},
		EmotionalState: types.EmotionScared,
	}

	guidance := usecase.StyleGuidance(c)
	gt.String(t, guidance).Contains("yes/no questions")
	gt.String(t, guidance).Contains("recently felt scared")
	gt.String(t, guidance).Contains("build confidence")
}
