package http

import (
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
)

type turnRequest struct {
	Text            string   `json:"text"`
	Role            string   `json:"role"`
	ConversationID  string   `json:"conversation_id"`
	ImportanceScore *float64 `json:"importance_score"`
}

type milestoneRequest struct {
	Description string `json:"description"`
	Progress    int    `json:"progress"`
	Target      int    `json:"target"`
	Completed   bool   `json:"completed"`
}

type promptRequest struct {
	Name       string             `json:"name"`
	Age        int                `json:"age"`
	Language   string             `json:"language"`
	Likes      []string           `json:"likes"`
	Dislikes   []string           `json:"dislikes"`
	Milestones []milestoneRequest `json:"milestones"`
	Query      string             `json:"query"`
}

type memoryResponse struct {
	ID             string        `json:"id"`
	ChildID        string        `json:"child_id"`
	Content        string        `json:"content"`
	Type           string        `json:"type"`
	Importance     float64       `json:"importance"`
	HasEmbedding   bool          `json:"has_embedding"`
	ConversationID string        `json:"conversation_id,omitempty"`
	EmotionalTone  string        `json:"emotional_tone,omitempty"`
	Concepts       []string      `json:"concepts,omitempty"`
	MergedFrom     []string      `json:"merged_from,omitempty"`
	Details        model.Details `json:"details,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ArchivedAt     *time.Time    `json:"archived_at,omitempty"`
}

type formationResponse struct {
	Memories []memoryResponse `json:"memories"`
	Errors   []string         `json:"errors"`
}

type scoredMemoryResponse struct {
	Memory     memoryResponse `json:"memory"`
	Similarity float64        `json:"similarity"`
}

type retrievalResponse struct {
	Strategy string                 `json:"strategy"`
	Memories []scoredMemoryResponse `json:"memories"`
}

type childContextResponse struct {
	ChildID            string           `json:"child_id"`
	ActiveInterests    []string         `json:"active_interests"`
	CommunicationStyle string           `json:"communication_style"`
	Confidence         int              `json:"confidence"`
	Curiosity          int              `json:"curiosity"`
	RelationshipLevel  int              `json:"relationship_level"`
	EmotionalState     string           `json:"emotional_state,omitempty"`
	RecentMemories     []memoryResponse `json:"recent_memories"`
	WindowSize         int              `json:"window_size"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

type insightResponse struct {
	Pattern             string   `json:"pattern"`
	Subject             string   `json:"subject"`
	Description         string   `json:"description"`
	Confidence          float64  `json:"confidence"`
	Recommendations     []string `json:"recommendations"`
	SupportingMemoryIDs []string `json:"supporting_memory_ids"`
}

type consolidationResponse struct {
	ChildID              string            `json:"child_id"`
	ConsolidatedMemories int               `json:"consolidated_memories"`
	MergedMemories       int               `json:"merged_memories"`
	ArchivedMemories     int               `json:"archived_memories"`
	ProcessingTimeMS     int64             `json:"processing_time_ms"`
	NewInsights          []insightResponse `json:"new_insights"`
}

type promptResponse struct {
	Prompt    string               `json:"prompt"`
	Context   childContextResponse `json:"context"`
	MemoryIDs []string             `json:"memory_ids"`
}

func toMemoryResponse(m *model.Memory) memoryResponse {
	resp := memoryResponse{
		ID:             m.ID.String(),
		ChildID:        m.ChildID.String(),
		Content:        m.Content,
		Type:           string(m.Type),
		Importance:     m.Importance,
		HasEmbedding:   len(m.Embedding) > 0,
		ConversationID: m.Metadata.ConversationID,
		EmotionalTone:  string(m.Metadata.EmotionalTone),
		Concepts:       m.Metadata.Concepts,
		Details:        m.Metadata.Details,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		ArchivedAt:     m.ArchivedAt,
	}
	for _, id := range m.Metadata.MergedFrom {
		resp.MergedFrom = append(resp.MergedFrom, id.String())
	}
	return resp
}

func toMemoryResponses(memories []*model.Memory) []memoryResponse {
	resp := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		resp = append(resp, toMemoryResponse(m))
	}
	return resp
}

func toChildContextResponse(c *model.ChildContext) childContextResponse {
	interests := c.ActiveInterests
	if interests == nil {
		interests = []string{}
	}
	return childContextResponse{
		ChildID:            c.ChildID.String(),
		ActiveInterests:    interests,
		CommunicationStyle: string(c.PersonalityProfile.CommunicationStyle),
		Confidence:         c.PersonalityProfile.Confidence,
		Curiosity:          c.PersonalityProfile.Curiosity,
		RelationshipLevel:  c.RelationshipLevel,
		EmotionalState:     string(c.EmotionalState),
		RecentMemories:     toMemoryResponses(c.RecentMemories),
		WindowSize:         c.WindowSize,
		GeneratedAt:        c.GeneratedAt,
	}
}

func toConsolidationResponse(r *model.ConsolidationResult) consolidationResponse {
	resp := consolidationResponse{
		ChildID:              r.ChildID.String(),
		ConsolidatedMemories: r.ConsolidatedMemories,
		MergedMemories:       r.MergedMemories,
		ArchivedMemories:     r.ArchivedMemories,
		ProcessingTimeMS:     r.ProcessingTimeMS(),
		NewInsights:          make([]insightResponse, 0, len(r.NewInsights)),
	}
	for _, in := range r.NewInsights {
		ids := make([]string, 0, len(in.SupportingMemoryIDs))
		for _, id := range in.SupportingMemoryIDs {
			ids = append(ids, id.String())
		}
		resp.NewInsights = append(resp.NewInsights, insightResponse{
			Pattern:             string(in.Pattern),
			Subject:             in.Subject,
			Description:         in.Description,
			Confidence:          in.Confidence,
			Recommendations:     in.Recommendations,
			SupportingMemoryIDs: ids,
		})
	}
	return resp
}

type toolRunRequest struct {
	Args map[string]any `json:"args"`
}

type toolParameterResponse struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type toolSpecResponse struct {
	Name        string                           `json:"name"`
	Description string                           `json:"description"`
	Parameters  map[string]toolParameterResponse `json:"parameters"`
}

type toolListResponse struct {
	Tools []toolSpecResponse `json:"tools"`
}

type toolRunResponse struct {
	Tool   string         `json:"tool"`
	Result map[string]any `json:"result"`
}
