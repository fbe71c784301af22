package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/appu-labs/appu/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// ConsolidationUseCase merges duplicate memories, archives decayed ones and
// derives insights. Passes for the same child run one at a time; formation
// may still write while a pass runs.
type ConsolidationUseCase struct {
	repo    interfaces.Repository
	reports interfaces.ReportWriter
	metrics *metrics.Metrics
	config  Config
	now     func() time.Time
	cache   *ChildContextUseCase
	locks   childLocks
}

func NewConsolidationUseCase(repo interfaces.Repository, reports interfaces.ReportWriter, m *metrics.Metrics, cfg Config, now func() time.Time, cache *ChildContextUseCase) *ConsolidationUseCase {
	return &ConsolidationUseCase{
		repo:    repo,
		reports: reports,
		metrics: m,
		config:  cfg,
		now:     now,
		cache:   cache,
	}
}

// ConsolidateAll runs Consolidate for every child in the store, one at a
// time. A failing child is logged and recorded in the result; the sweep moves
// on. Only failing to enumerate children is returned as an error.
func (uc *ConsolidationUseCase) ConsolidateAll(ctx context.Context) (*model.SweepResult, error) {
	logger := logging.From(ctx)
	sweep := &model.SweepResult{StartedAt: uc.now()}

	children, err := uc.repo.Memory().ListChildIDs(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list children for consolidation")
	}

	logger.Info("consolidation sweep started", "children", len(children))

	for _, childID := range children {
		if ctx.Err() != nil {
			logger.Warn("consolidation sweep cancelled", "error", ctx.Err().Error())
			break
		}

		result, err := uc.Consolidate(ctx, childID)
		if err != nil {
			sweep.Failures = append(sweep.Failures, model.ChildFailure{
				ChildID: childID,
				Error:   err.Error(),
			})
			_ = errutil.Handle(ctx, err, "consolidation failed for child")
			continue
		}
		sweep.Results = append(sweep.Results, result)
	}

	sweep.FinishedAt = uc.now()
	logger.Info("consolidation sweep finished",
		"succeeded", sweep.Succeeded(),
		"failed", sweep.Failed(),
		"duration", sweep.FinishedAt.Sub(sweep.StartedAt).String(),
	)
	return sweep, nil
}

// Consolidate runs one pass over childID's active memories. Running it twice
// with no writes in between merges and archives nothing the second time.
func (uc *ConsolidationUseCase) Consolidate(ctx context.Context, childID types.ChildID) (*model.ConsolidationResult, error) {
	if err := childID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidQuery, "invalid child ID", goerr.V(ChildIDKey, childID))
	}

	unlock, err := uc.locks.lock(ctx, childID)
	if err != nil {
		return nil, goerr.Wrap(err, "gave up waiting for running consolidation", goerr.V(ChildIDKey, childID))
	}
	defer unlock()

	begin := time.Now()
	now := uc.now()
	result := &model.ConsolidationResult{
		ChildID:   childID,
		StartedAt: now,
	}

	err = uc.consolidate(ctx, childID, now, result)
	result.ProcessingTime = time.Since(begin)
	uc.metrics.ObserveConsolidation(result.ProcessingTime)

	if result.MergedMemories > 0 || result.ArchivedMemories > 0 {
		uc.cache.Invalidate(childID)
	}

	if err != nil {
		uc.metrics.ConsolidationRuns.WithLabelValues("failure").Inc()
		return nil, goerr.Wrap(ErrConsolidationChildFailure, "consolidation pass failed",
			goerr.V(ChildIDKey, childID),
			goerr.V("merged", result.MergedMemories),
			goerr.V("archived", result.ArchivedMemories),
			goerr.V("cause", err.Error()))
	}
	uc.metrics.ConsolidationRuns.WithLabelValues("success").Inc()

	logging.From(ctx).Info("consolidation completed",
		"child_id", childID,
		"consolidated", result.ConsolidatedMemories,
		"merged", result.MergedMemories,
		"archived", result.ArchivedMemories,
		"insights", len(result.NewInsights),
		"processing_time_ms", result.ProcessingTimeMS(),
	)

	if uc.reports != nil {
		if err := uc.reports.WriteConsolidation(ctx, result); err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to write consolidation report",
				goerr.V(ChildIDKey, childID)), "consolidation report not written")
		}
	}

	return result, nil
}

func (uc *ConsolidationUseCase) consolidate(ctx context.Context, childID types.ChildID, now time.Time, result *model.ConsolidationResult) error {
	listCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	memories, err := uc.repo.Memory().List(listCtx, childID)
	cancel()
	if err != nil {
		return goerr.Wrap(err, "failed to list memories")
	}

	// oldest first so group order and survivor tie-breaks are stable
	sort.SliceStable(memories, func(i, j int) bool {
		if !memories[i].CreatedAt.Equal(memories[j].CreatedAt) {
			return memories[i].CreatedAt.Before(memories[j].CreatedAt)
		}
		return memories[i].ID < memories[j].ID
	})

	survivors := make([]*model.Memory, 0, len(memories))
	for _, group := range groupDuplicates(memories, uc.config.MergeSimilarity) {
		if len(group) == 1 {
			survivors = append(survivors, group[0])
			continue
		}

		survivor, err := uc.mergeGroup(ctx, childID, group, now, result)
		if err != nil {
			return err
		}
		survivors = append(survivors, survivor)
	}

	active := make([]*model.Memory, 0, len(survivors))
	for _, m := range survivors {
		if !uc.shouldArchive(m, now) {
			active = append(active, m)
			continue
		}

		archiveCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
		err := uc.repo.Memory().Archive(archiveCtx, childID, m.ID, now)
		cancel()
		if err != nil {
			return goerr.Wrap(err, "failed to archive memory", goerr.V(MemoryIDKey, m.ID))
		}
		result.ArchivedMemories++
		uc.metrics.ArchivedMemories.Inc()
	}

	result.NewInsights = deriveInsights(active, uc.config.InsightMinSupport)
	return nil
}

// mergeGroup folds group into its survivor, updates it, then deletes the rest
func (uc *ConsolidationUseCase) mergeGroup(ctx context.Context, childID types.ChildID, group []*model.Memory, now time.Time, result *model.ConsolidationResult) (*model.Memory, error) {
	merged, absorbed := mergeMemories(group, now)

	updateCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	updated, err := uc.repo.Memory().Update(updateCtx, childID, merged)
	cancel()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update merged memory", goerr.V(MemoryIDKey, merged.ID))
	}

	deleted := 0
	for _, m := range absorbed {
		deleteCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
		err := uc.repo.Memory().Delete(deleteCtx, childID, m.ID)
		cancel()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to delete merged memory",
				goerr.V(MemoryIDKey, m.ID),
				goerr.V("survivor_id", merged.ID))
		}
		deleted++
		result.MergedMemories++
		uc.metrics.MergedMemories.Inc()
	}
	if deleted > 0 {
		result.ConsolidatedMemories++
	}

	return updated, nil
}

func (uc *ConsolidationUseCase) shouldArchive(m *model.Memory, now time.Time) bool {
	if m.Age(now) < uc.config.ArchiveGrace {
		return false
	}
	return m.DecayedImportance(now, uc.config.DecayHalfLife) < uc.config.ArchiveThreshold
}

// groupDuplicates partitions memories, which must be sorted oldest first,
// into merge groups. Two memories of the same type belong together when their
// content hashes match or their embeddings are at least minSimilarity apart.
// Grouping is transitive. Groups and their members keep input order.
func groupDuplicates(memories []*model.Memory, minSimilarity float64) [][]*model.Memory {
	uf := newUnionFind(len(memories))

	byHash := make(map[string]int)
	for i, m := range memories {
		key := string(m.Type) + "\x00" + m.Hash()
		if j, ok := byHash[key]; ok {
			uf.union(j, i)
		} else {
			byHash[key] = i
		}
	}

	for i := range memories {
		if len(memories[i].Embedding) == 0 {
			continue
		}
		for j := i + 1; j < len(memories); j++ {
			if memories[i].Type != memories[j].Type || len(memories[j].Embedding) == 0 {
				continue
			}
			if memories[i].Embedding.Similarity(memories[j].Embedding) >= minSimilarity {
				uf.union(i, j)
			}
		}
	}

	index := make(map[int]int)
	var groups [][]*model.Memory
	for i, m := range memories {
		root := uf.find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], m)
	}
	return groups
}

// mergeMemories picks the survivor of group and returns it with the other
// members' information folded in, plus the members to delete. The survivor
// has the highest importance; ties go to the earliest member.
func mergeMemories(group []*model.Memory, now time.Time) (*model.Memory, []*model.Memory) {
	survivorIdx := 0
	for i, m := range group {
		if m.Importance > group[survivorIdx].Importance {
			survivorIdx = i
		}
	}

	survivor := group[survivorIdx]
	absorbed := make([]*model.Memory, 0, len(group)-1)
	for i, m := range group {
		if i != survivorIdx {
			absorbed = append(absorbed, m)
		}
	}

	merged := survivor.Clone()
	merged.Metadata.Hash = survivor.Hash()
	merged.Importance = model.ClampImportance(survivor.Importance)
	merged.Metadata.EmotionalTone = mergedTone(survivor, absorbed)
	merged.UpdatedAt = now

	concepts := make([][]string, len(absorbed))
	seen := map[model.MemoryID]struct{}{merged.ID: {}}
	mergedFrom := make([]model.MemoryID, 0, len(survivor.Metadata.MergedFrom)+len(absorbed))
	addMerged := func(id model.MemoryID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		mergedFrom = append(mergedFrom, id)
	}
	for _, id := range survivor.Metadata.MergedFrom {
		addMerged(id)
	}
	for i, m := range absorbed {
		concepts[i] = m.Metadata.Concepts
		addMerged(m.ID)
		for _, id := range m.Metadata.MergedFrom {
			addMerged(id)
		}
		if len(merged.Embedding) == 0 && len(m.Embedding) > 0 {
			merged.Embedding = m.Embedding.Clone()
		}
		if merged.Metadata.Details == nil && m.Metadata.Details != nil {
			merged.Metadata.Details = m.Metadata.Details
		}
	}
	merged.Metadata.Concepts = model.UnionConcepts(survivor.Metadata.Concepts, concepts...)
	merged.Metadata.MergedFrom = mergedFrom

	return merged, absorbed
}

// mergedTone keeps the tone of the most important member that has one.
// Equal importance prefers the survivor, then earlier members.
func mergedTone(survivor *model.Memory, absorbed []*model.Memory) types.EmotionalTone {
	if survivor.Metadata.EmotionalTone != types.EmotionalToneNone {
		return survivor.Metadata.EmotionalTone
	}

	tone := types.EmotionalToneNone
	best := -1.0
	for _, m := range absorbed {
		if m.Metadata.EmotionalTone == types.EmotionalToneNone {
			continue
		}
		if m.Importance > best {
			best = m.Importance
			tone = m.Metadata.EmotionalTone
		}
	}
	return tone
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union attaches the later root under the earlier one
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra == rb:
	case ra < rb:
		u.parent[rb] = ra
	default:
		u.parent[ra] = rb
	}
}
