package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/appu-labs/appu/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// TurnInput is one conversation turn handed over by the conversation handler
type TurnInput struct {
	ChildID        types.ChildID
	Text           string
	Role           types.Role
	ConversationID string
	// ImportanceScore overrides the rule's importance for every memory formed
	// from this turn. It is clamped to [0,1].
	ImportanceScore *float64
}

func (in *TurnInput) Validate() error {
	if err := in.ChildID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid turn", goerr.V(ChildIDKey, in.ChildID))
	}
	if !in.Role.IsValid() {
		return goerr.New("invalid turn role", goerr.V("role", in.Role))
	}
	if strings.TrimSpace(in.Text) == "" {
		return goerr.New("turn text is empty")
	}
	return nil
}

// FormationResult lists the memories stored for one turn. Errors holds one
// entry per memory that could not be stored; it never stops the others.
type FormationResult struct {
	Memories []*model.Memory
	Errors   []error
}

type FormationUseCase struct {
	repo     interfaces.Repository
	embedder interfaces.Embedder
	metrics  *metrics.Metrics
	config   Config
	now      func() time.Time
	concepts *conceptTagger
	cache    *ChildContextUseCase
}

func NewFormationUseCase(repo interfaces.Repository, embedder interfaces.Embedder, m *metrics.Metrics, cfg Config, now func() time.Time, cache *ChildContextUseCase) *FormationUseCase {
	return &FormationUseCase{
		repo:     repo,
		embedder: embedder,
		metrics:  m,
		config:   cfg,
		now:      now,
		concepts: newConceptTagger(cfg.Concepts),
		cache:    cache,
	}
}

// FormMemories applies the formation rules to one turn and stores a memory
// for every rule that fires. It never fails: invalid input, embedding
// failures and store failures are logged and reported in the result.
func (uc *FormationUseCase) FormMemories(ctx context.Context, in TurnInput) *FormationResult {
	logger := logging.From(ctx)
	result := &FormationResult{}

	if err := in.Validate(); err != nil {
		logger.Warn("skip memory formation for invalid turn", "error", err.Error())
		result.Errors = append(result.Errors, err)
		return result
	}

	t := newTurn(in.Text, in.Role)
	t.concepts = uc.concepts.match(t.tokens)
	concepts := conceptTags(t.concepts)

	for _, rule := range formationRules {
		if rule.role != t.role {
			continue
		}
		trigger, ok := rule.match(t)
		if !ok {
			continue
		}

		draft := rule.build(t, trigger)
		mem, err := uc.store(ctx, in, draft, concepts)
		if err != nil {
			uc.metrics.FormationFailures.WithLabelValues(draft.memType.String()).Inc()
			_ = errutil.Handle(ctx, err, "failed to form memory")
			result.Errors = append(result.Errors, err)
			continue
		}

		uc.metrics.MemoriesFormed.WithLabelValues(mem.Type.String()).Inc()
		logger.Debug("memory formed",
			"child_id", in.ChildID,
			"memory_id", mem.ID,
			"type", mem.Type,
			"rule", rule.name,
		)
		result.Memories = append(result.Memories, mem)
	}

	if len(result.Memories) > 0 {
		uc.cache.Invalidate(in.ChildID)
	}

	return result
}

func (uc *FormationUseCase) store(ctx context.Context, in TurnInput, draft memoryDraft, concepts []string) (*model.Memory, error) {
	now := uc.now()
	importance := draft.importance
	var override *float64
	if in.ImportanceScore != nil {
		v := model.ClampImportance(*in.ImportanceScore)
		importance = v
		override = &v
	}

	mem := &model.Memory{
		ID:         model.NewMemoryID(),
		ChildID:    in.ChildID,
		Content:    draft.content,
		Type:       draft.memType,
		Importance: model.ClampImportance(importance),
		Metadata: model.Metadata{
			ConversationID:  in.ConversationID,
			EmotionalTone:   draft.tone,
			Concepts:        append([]string{}, concepts...),
			ImportanceScore: override,
			Hash:            model.ContentHash(draft.content),
			Details:         draft.details,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if uc.embedder != nil {
		embedding, err := uc.embed(ctx, mem.Content)
		if err != nil {
			uc.metrics.EmbeddingFailures.WithLabelValues("formation").Inc()
			logging.From(ctx).Warn("store memory without embedding",
				"child_id", in.ChildID,
				"memory_id", mem.ID,
				"error", err.Error(),
			)
		}
		mem.Embedding = embedding
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	defer cancel()

	created, err := uc.repo.Memory().Create(storeCtx, in.ChildID, mem)
	if err != nil {
		return nil, goerr.Wrap(ErrStoreWriteFailure, "failed to create memory",
			goerr.V(ChildIDKey, in.ChildID),
			goerr.V(MemoryIDKey, mem.ID),
			goerr.V("type", mem.Type),
			goerr.V("cause", err.Error()))
	}
	return created, nil
}

// embed returns ErrEmbeddingUnavailable when no provider is configured or
// the call fails or times out
func (uc *FormationUseCase) embed(ctx context.Context, text string) (model.Embedding, error) {
	return embedWithTimeout(ctx, uc.embedder, text, uc.config.EmbeddingTimeout)
}

func embedWithTimeout(ctx context.Context, embedder interfaces.Embedder, text string, timeout time.Duration) (model.Embedding, error) {
	if embedder == nil {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "no embedding provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	embedding, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "embedding call failed", goerr.V("cause", err.Error()))
	}
	if len(embedding) == 0 {
		return nil, goerr.Wrap(ErrEmbeddingUnavailable, "embedding is empty")
	}
	return embedding, nil
}
