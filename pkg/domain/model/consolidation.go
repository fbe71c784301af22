package model

import (
	"time"

	"github.com/appu-labs/appu/pkg/domain/types"
)

// Insight is a pattern found across a child's surviving memories
type Insight struct {
	Pattern             types.InsightPattern
	Subject             string
	Description         string
	Confidence          float64
	Recommendations     []string
	SupportingMemoryIDs []MemoryID
}

// ConsolidationResult summarizes one consolidation pass over one child
type ConsolidationResult struct {
	ChildID              types.ChildID
	ConsolidatedMemories int // survivors that absorbed at least one duplicate
	MergedMemories       int // duplicates deleted into a survivor
	ArchivedMemories     int
	ProcessingTime       time.Duration
	NewInsights          []Insight
	StartedAt            time.Time
}

func (r *ConsolidationResult) ProcessingTimeMS() int64 {
	return r.ProcessingTime.Milliseconds()
}

// ChildFailure records a child whose consolidation pass failed
type ChildFailure struct {
	ChildID types.ChildID
	Error   string
}

// SweepResult summarizes consolidation over every known child
type SweepResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*ConsolidationResult
	Failures   []ChildFailure
}

func (s *SweepResult) Succeeded() int {
	return len(s.Results)
}

func (s *SweepResult) Failed() int {
	return len(s.Failures)
}
