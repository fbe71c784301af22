package model_test

import (
	"testing"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestDetails_RoundTripPerType(t *testing.T) {
	variants := []model.Details{
		model.ConversationalDetails{Trigger: "love"},
		model.LearningDetails{Trigger: "why", Question: true},
		model.EmotionalDetails{Emotion: types.EmotionScared, Trigger: "afraid"},
		model.RelationshipDetails{Interaction: "encouragement", Quote: "Great job..."},
		model.VisualDetails{Description: "a red kite", Objects: []string{"kite"}},
		model.BehavioralDetails{Pattern: "asks for a story at bedtime"},
		model.CulturalDetails{Tradition: "Diwali"},
		model.PreferenceDetails{Subject: "broccoli", Likes: false},
	}

	covered := map[types.MemoryType]bool{}
	for _, d := range variants {
		t.Run(d.MemoryType().String(), func(t *testing.T) {
			data, err := model.EncodeDetails(d)
			gt.NoError(t, err).Required()

			got, err := model.DecodeDetails(d.MemoryType(), data)
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(d)
		})
		covered[d.MemoryType()] = true
	}

	for _, mt := range types.AllMemoryTypes() {
		gt.B(t, covered[mt]).True()
	}
}

func TestDecodeDetails(t *testing.T) {
	t.Run("empty data decodes to nil", func(t *testing.T) {
		d, err := model.DecodeDetails(types.MemoryTypeLearning, nil)
		gt.NoError(t, err)
		gt.Value(t, d).Nil()
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := model.DecodeDetails("dream", []byte(`{}`))
		gt.Error(t, err).Is(model.ErrInvalidMemory)
	})

	t.Run("broken payload", func(t *testing.T) {
		_, err := model.DecodeDetails(types.MemoryTypeEmotional, []byte(`{"emotion":`))
		gt.Error(t, err)
	})
}
