package usecase

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/appu-labs/appu/pkg/utils/metrics"
	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// ChildContextUseCase serves ChildContext summaries. Results are cached for
// a short TTL and dropped whenever the child's memories change.
type ChildContextUseCase struct {
	repo    interfaces.Repository
	metrics *metrics.Metrics
	config  Config
	now     func() time.Time

	cache       *ristretto.Cache
	group       singleflight.Group
	generations sync.Map // types.ChildID -> *atomic.Uint64
}

func NewChildContextUseCase(repo interfaces.Repository, m *metrics.Metrics, cfg Config, now func() time.Time) *ChildContextUseCase {
	uc := &ChildContextUseCase{
		repo:    repo,
		metrics: m,
		config:  cfg,
		now:     now,
	}

	if cfg.ContextCacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 10_000,
			MaxCost:     1_000,
			BufferItems: 64,
		})
		if err != nil {
			logging.Default().Warn("child context cache disabled", "error", err.Error())
		} else {
			uc.cache = cache
		}
	}

	return uc
}

// Get returns the context summarizing the child's recent memories. The
// returned value may be shared with other callers and must not be modified.
func (uc *ChildContextUseCase) Get(ctx context.Context, childID types.ChildID) (*model.ChildContext, error) {
	if err := childID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidQuery, "invalid child ID", goerr.V(ChildIDKey, childID))
	}

	// A write bumps the generation, so a context built from an older read
	// lands under a key no later Get looks up.
	key := cacheKey(childID, uc.generation(childID).Load())
	if uc.cache != nil {
		if v, ok := uc.cache.Get(key); ok {
			uc.metrics.ContextCacheLookup.WithLabelValues("hit").Inc()
			return v.(*model.ChildContext), nil
		}
		uc.metrics.ContextCacheLookup.WithLabelValues("miss").Inc()
	}

	v, err, _ := uc.group.Do(key, func() (any, error) {
		childCtx, err := uc.build(ctx, childID)
		if err != nil {
			return nil, err
		}

		if uc.cache != nil {
			uc.cache.SetWithTTL(key, childCtx, 1, uc.config.ContextCacheTTL)
		}
		return childCtx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.ChildContext), nil
}

// Invalidate drops the cached context of childID
func (uc *ChildContextUseCase) Invalidate(childID types.ChildID) {
	prev := uc.generation(childID).Add(1) - 1
	if uc.cache != nil {
		uc.cache.Del(cacheKey(childID, prev))
	}
}

// Close stops the cache's background goroutines
func (uc *ChildContextUseCase) Close() {
	if uc.cache != nil {
		uc.cache.Close()
	}
}

func cacheKey(childID types.ChildID, gen uint64) string {
	return childID.String() + "#" + strconv.FormatUint(gen, 10)
}

func (uc *ChildContextUseCase) generation(childID types.ChildID) *atomic.Uint64 {
	v, _ := uc.generations.LoadOrStore(childID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (uc *ChildContextUseCase) build(ctx context.Context, childID types.ChildID) (*model.ChildContext, error) {
	now := uc.now()

	storeCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	defer cancel()

	memories, err := uc.repo.Memory().List(storeCtx, childID,
		interfaces.WithCreatedSince(now.Add(-uc.config.ContextWindow)),
		interfaces.WithLimit(uc.config.ContextMaxMemories),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories for child context", goerr.V(ChildIDKey, childID))
	}

	return BuildChildContext(childID, memories, now), nil
}

// BuildChildContext summarizes memories into a ChildContext. It depends only
// on its arguments. Archived memories and memories of other children are
// ignored.
func BuildChildContext(childID types.ChildID, memories []*model.Memory, now time.Time) *model.ChildContext {
	window := make([]*model.Memory, 0, len(memories))
	for _, m := range memories {
		if m.ChildID == childID && !m.IsArchived() {
			window = append(window, m)
		}
	}
	interfaces.SortByRecency(window)

	stats := countMemories(window)

	recent := window
	if len(recent) > maxRecentMemories {
		recent = recent[:maxRecentMemories]
	}

	return &model.ChildContext{
		ChildID:         childID,
		ActiveInterests: activeInterests(window, maxInterests),
		PersonalityProfile: model.PersonalityProfile{
			CommunicationStyle: stats.style(),
			Confidence:         stats.confidence(),
			Curiosity:          stats.curiosity(),
		},
		RelationshipLevel: stats.relationshipLevel(),
		EmotionalState:    latestEmotion(window),
		RecentMemories:    append([]*model.Memory{}, recent...),
		WindowSize:        len(window),
		GeneratedAt:       now,
	}
}

type memoryStats struct {
	total                int
	byType               map[types.MemoryType]int
	positive             int
	negative             int
	positiveRelationship int
	positiveOther        int
	positiveConversation int
}

func countMemories(memories []*model.Memory) memoryStats {
	s := memoryStats{byType: make(map[types.MemoryType]int)}
	for _, m := range memories {
		s.total++
		s.byType[m.Type]++

		switch m.Metadata.EmotionalTone {
		case types.EmotionalTonePositive:
			s.positive++
			switch m.Type {
			case types.MemoryTypeRelationship:
				s.positiveRelationship++
			case types.MemoryTypeConversational:
				s.positiveConversation++
				s.positiveOther++
			default:
				s.positiveOther++
			}
		case types.EmotionalToneNegative:
			s.negative++
		}
	}
	return s
}

func (s memoryStats) share(n int) float64 {
	if s.total == 0 {
		return 0
	}
	return float64(n) / float64(s.total)
}

func (s memoryStats) style() types.CommunicationStyle {
	switch {
	case s.total == 0:
		return types.CommunicationStyleNew
	case s.share(s.byType[types.MemoryTypeLearning]) >= 0.4:
		return types.CommunicationStyleCurious
	case s.share(s.byType[types.MemoryTypeEmotional]) >= 0.4:
		return types.CommunicationStyleExpressive
	case s.share(s.positiveConversation) >= 0.4:
		return types.CommunicationStyleEnthusiastic
	case s.total < 3:
		return types.CommunicationStyleReserved
	default:
		return types.CommunicationStyleBalanced
	}
}

// curiosity starts at 4 and reaches 10 once half the window is learning
func (s memoryStats) curiosity() int {
	if s.total == 0 {
		return 5
	}
	return clampScore(4 + 12*s.share(s.byType[types.MemoryTypeLearning]))
}

// confidence moves from 5 toward 10 or 0 with the balance of tones
func (s memoryStats) confidence() int {
	if s.total == 0 {
		return 5
	}
	return clampScore(5 + 5*float64(s.positive-s.negative)/float64(s.total))
}

// relationshipLevel never decreases when a positive memory is added
func (s memoryStats) relationshipLevel() int {
	level := s.positiveRelationship + s.positiveOther/2
	if level > 10 {
		return 10
	}
	return level
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	switch {
	case n < 0:
		return 0
	case n > 10:
		return 10
	default:
		return n
	}
}

// activeInterests ranks concepts by frequency. Ties go to the concept seen
// most recently, then alphabetical. memories must be newest first.
func activeInterests(memories []*model.Memory, limit int) []string {
	count := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, m := range memories {
		for _, c := range m.Metadata.Concepts {
			if c == "" {
				continue
			}
			if _, ok := firstSeen[c]; !ok {
				firstSeen[c] = i
			}
			count[c]++
		}
	}

	interests := make([]string, 0, len(count))
	for c := range count {
		interests = append(interests, c)
	}
	sort.Slice(interests, func(i, j int) bool {
		a, b := interests[i], interests[j]
		if count[a] != count[b] {
			return count[a] > count[b]
		}
		if firstSeen[a] != firstSeen[b] {
			return firstSeen[a] < firstSeen[b]
		}
		return a < b
	})

	if len(interests) > limit {
		interests = interests[:limit]
	}
	return interests
}

// latestEmotion returns the emotion of the newest emotional memory.
// memories must be newest first.
func latestEmotion(memories []*model.Memory) types.Emotion {
	for _, m := range memories {
		if m.Type != types.MemoryTypeEmotional {
			continue
		}
		if d, ok := m.Metadata.Details.(model.EmotionalDetails); ok && d.Emotion.IsValid() {
			return d.Emotion
		}
	}
	return ""
}
