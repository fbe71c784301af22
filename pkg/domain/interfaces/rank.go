package interfaces

import (
	"sort"

	"github.com/appu-labs/appu/pkg/domain/model"
)

func sortScored(results []*model.ScoredMemory) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Memory.Importance != b.Memory.Importance {
			return a.Memory.Importance > b.Memory.Importance
		}
		return a.Memory.CreatedAt.After(b.Memory.CreatedAt)
	})
}

// SortByRecency orders memories newest first with ID as a stable tie-break
func SortByRecency(memories []*model.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		if !memories[i].CreatedAt.Equal(memories[j].CreatedAt) {
			return memories[i].CreatedAt.After(memories[j].CreatedAt)
		}
		return memories[i].ID > memories[j].ID
	})
}
