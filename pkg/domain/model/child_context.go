package model

import (
	"time"

	"github.com/appu-labs/appu/pkg/domain/types"
)

// PersonalityProfile holds trait scores on a 0-10 scale
type PersonalityProfile struct {
	CommunicationStyle types.CommunicationStyle
	Confidence         int
	Curiosity          int
}

// ChildContext is a summary derived from a child's recent memories. It is
// recomputed on demand and never used as a source of truth.
type ChildContext struct {
	ChildID            types.ChildID
	ActiveInterests    []string
	PersonalityProfile PersonalityProfile
	RelationshipLevel  int
	EmotionalState     types.Emotion // empty when no emotional memory is in the window
	RecentMemories     []*Memory
	WindowSize         int // number of memories the summary was computed from
	GeneratedAt        time.Time
}
