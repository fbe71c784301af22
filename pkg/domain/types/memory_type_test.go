package types_test

import (
	"testing"

	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestMemoryType_IsValid(t *testing.T) {
	for _, mt := range types.AllMemoryTypes() {
		t.Run(mt.String(), func(t *testing.T) {
			gt.B(t, mt.IsValid()).True()
		})
	}

	gt.B(t, types.MemoryType("").IsValid()).False()
	gt.B(t, types.MemoryType("Learning").IsValid()).False()
}

func TestParseMemoryType(t *testing.T) {
	got, err := types.ParseMemoryType("emotional")
	gt.NoError(t, err)
	gt.Value(t, got).Equal(types.MemoryTypeEmotional)

	_, err = types.ParseMemoryType("dream")
	gt.Error(t, err)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    types.Role
		wantErr bool
	}{
		{"user", types.RoleUser, false},
		{"assistant", types.RoleAssistant, false},
		{"system", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseRole(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestEmotion_Tone(t *testing.T) {
	gt.Value(t, types.EmotionHappy.Tone()).Equal(types.EmotionalTonePositive)
	gt.Value(t, types.EmotionSad.Tone()).Equal(types.EmotionalToneNegative)
	gt.Value(t, types.EmotionTired.Tone()).Equal(types.EmotionalToneNegative)
	gt.Value(t, types.Emotion("bored").Tone()).Equal(types.EmotionalToneNone)
}
