package types

import "fmt"

// MemoryType classifies what a memory observed about a child
type MemoryType string

const (
	MemoryTypeConversational MemoryType = "conversational"
	MemoryTypeLearning       MemoryType = "learning"
	MemoryTypeEmotional      MemoryType = "emotional"
	MemoryTypeRelationship   MemoryType = "relationship"
	MemoryTypeVisual         MemoryType = "visual"
	MemoryTypeBehavioral     MemoryType = "behavioral"
	MemoryTypeCultural       MemoryType = "cultural"
	MemoryTypePreference     MemoryType = "preference"
)

// AllMemoryTypes returns all valid memory types
func AllMemoryTypes() []MemoryType {
	return []MemoryType{
		MemoryTypeConversational,
		MemoryTypeLearning,
		MemoryTypeEmotional,
		MemoryTypeRelationship,
		MemoryTypeVisual,
		MemoryTypeBehavioral,
		MemoryTypeCultural,
		MemoryTypePreference,
	}
}

// IsValid checks if the memory type is valid
func (t MemoryType) IsValid() bool {
	switch t {
	case MemoryTypeConversational,
		MemoryTypeLearning,
		MemoryTypeEmotional,
		MemoryTypeRelationship,
		MemoryTypeVisual,
		MemoryTypeBehavioral,
		MemoryTypeCultural,
		MemoryTypePreference:
		return true
	default:
		return false
	}
}

func (t MemoryType) String() string {
	return string(t)
}

// ParseMemoryType parses a string into a MemoryType
func ParseMemoryType(s string) (MemoryType, error) {
	t := MemoryType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid memory type: %s", s)
	}
	return t, nil
}
