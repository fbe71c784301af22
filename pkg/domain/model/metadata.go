package model

import (
	"github.com/appu-labs/appu/pkg/domain/types"
)

// Metadata carries fields shared by every memory type plus a typed Details
// payload for the type-specific ones.
type Metadata struct {
	ConversationID  string
	EmotionalTone   types.EmotionalTone
	Concepts        []string
	ImportanceScore *float64 // caller-supplied override applied at formation
	Hash            string
	MergedFrom      []MemoryID // IDs absorbed by consolidation
	Details         Details
}

func (m Metadata) Clone() Metadata {
	copied := m
	if m.Concepts != nil {
		copied.Concepts = append([]string{}, m.Concepts...)
	}
	if m.MergedFrom != nil {
		copied.MergedFrom = append([]MemoryID{}, m.MergedFrom...)
	}
	if m.ImportanceScore != nil {
		v := *m.ImportanceScore
		copied.ImportanceScore = &v
	}
	return copied
}

// UnionConcepts returns base followed by any concepts of others not already
// present, preserving first-seen order.
func UnionConcepts(base []string, others ...[]string) []string {
	seen := make(map[string]struct{}, len(base))
	result := make([]string, 0, len(base))
	add := func(list []string) {
		for _, c := range list {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			result = append(result, c)
		}
	}
	add(base)
	for _, o := range others {
		add(o)
	}
	return result
}
