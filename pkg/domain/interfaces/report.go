package interfaces

import (
	"context"

	"github.com/appu-labs/appu/pkg/domain/model"
)

// ReportWriter persists consolidation results outside the memory store
type ReportWriter interface {
	WriteConsolidation(ctx context.Context, result *model.ConsolidationResult) error
}
