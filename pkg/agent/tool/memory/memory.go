// Package memory exposes a child's memories to the conversation model as
// gollem tools. Every tool is bound to one child; the model cannot reach
// another child's memories.
package memory

import (
	"context"
	"fmt"

	"github.com/appu-labs/appu/pkg/agent/tool"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

// New builds the memory tools for childID
func New(uc *usecase.UseCases, childID types.ChildID) []gollem.Tool {
	return []gollem.Tool{
		&searchMemoriesTool{retrieval: uc.Retrieval, childID: childID},
		&childContextTool{contexts: uc.ChildContext, childID: childID},
	}
}

// searchMemoriesTool recalls memories relevant to a topic
type searchMemoriesTool struct {
	retrieval *usecase.RetrievalUseCase
	childID   types.ChildID
}

func (t *searchMemoriesTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "memory__search",
		Description: "Recall what you remember about the child. Give a topic to find related memories, or leave it empty for the most recent ones.",
		Parameters: map[string]*gollem.Parameter{
			"query": {
				Type:        gollem.TypeString,
				Description: "Topic to recall, e.g. \"dinosaurs\" or \"counting\"",
			},
			"type": {
				Type:        gollem.TypeString,
				Description: "Only this kind of memory: conversational, learning, emotional, relationship, visual, behavioral, cultural or preference",
			},
			"timeframe": {
				Type:        gollem.TypeString,
				Description: "Only memories from the last day, week or month (used when query is empty)",
			},
			"limit": {
				Type:        gollem.TypeInteger,
				Description: fmt.Sprintf("Maximum number of memories (default: %d, max: %d)", defaultSearchLimit, maxSearchLimit),
			},
		},
	}
}

func (t *searchMemoriesTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	q := usecase.RetrievalQuery{
		ChildID: t.childID,
		Limit:   defaultSearchLimit,
	}
	q.Query, _ = args["query"].(string)

	if v, ok := args["type"].(string); ok && v != "" {
		memType, err := types.ParseMemoryType(v)
		if err != nil {
			return nil, goerr.Wrap(usecase.ErrInvalidQuery, "invalid memory type", goerr.V("type", v), goerr.V("cause", err.Error()))
		}
		q.Type = memType
	}
	if v, ok := args["timeframe"].(string); ok && v != "" {
		tf, err := types.ParseTimeframe(v)
		if err != nil {
			return nil, goerr.Wrap(usecase.ErrInvalidQuery, "invalid timeframe", goerr.V("timeframe", v), goerr.V("cause", err.Error()))
		}
		q.Timeframe = tf
	}
	if n, ok, err := intArg(args, "limit"); err != nil {
		return nil, err
	} else if ok && n > 0 {
		q.Limit = min(n, maxSearchLimit)
	}

	if q.Query != "" {
		tool.Progress(ctx, fmt.Sprintf("Remembering %s...", q.Query))
	} else {
		tool.Progress(ctx, "Remembering...")
	}

	result, err := t.retrieval.Retrieve(ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories", goerr.V(usecase.ChildIDKey, t.childID))
	}

	items := make([]map[string]any, len(result.Memories))
	for i, sm := range result.Memories {
		items[i] = memoryItem(sm.Memory)
		if result.Strategy == usecase.RetrievalSemantic {
			items[i]["similarity"] = sm.Similarity
		}
	}
	return map[string]any{
		"strategy": string(result.Strategy),
		"memories": items,
	}, nil
}

// childContextTool summarizes the child's recent state
type childContextTool struct {
	contexts *usecase.ChildContextUseCase
	childID  types.ChildID
}

func (t *childContextTool) Spec() gollem.ToolSpec {
	return gollem.ToolSpec{
		Name:        "memory__child_context",
		Description: "Get a summary of the child from the last days: current interests, communication style, how they have been feeling and how close your relationship is.",
		Parameters:  map[string]*gollem.Parameter{},
	}
}

func (t *childContextTool) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	tool.Progress(ctx, "Thinking about the child...")

	c, err := t.contexts.Get(ctx, t.childID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get child context", goerr.V(usecase.ChildIDKey, t.childID))
	}

	resp := map[string]any{
		"active_interests":    c.ActiveInterests,
		"communication_style": string(c.PersonalityProfile.CommunicationStyle),
		"confidence":          c.PersonalityProfile.Confidence,
		"curiosity":           c.PersonalityProfile.Curiosity,
		"relationship_level":  c.RelationshipLevel,
		"memories_considered": c.WindowSize,
	}
	if c.EmotionalState != "" {
		resp["recent_emotion"] = string(c.EmotionalState)
	}
	return resp, nil
}

func memoryItem(m *model.Memory) map[string]any {
	item := map[string]any{
		"id":         m.ID.String(),
		"type":       string(m.Type),
		"content":    m.Content,
		"importance": m.Importance,
		"created_at": m.CreatedAt.Format("2006-01-02"),
	}
	if len(m.Metadata.Concepts) > 0 {
		item["concepts"] = m.Metadata.Concepts
	}
	return item
}

// intArg reads an optional integer argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		return int(n), true, nil
	default:
		return 0, false, goerr.Wrap(usecase.ErrInvalidQuery, "argument must be an integer", goerr.V("key", key), goerr.V("type", fmt.Sprintf("%T", v)))
	}
}
