package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const writeTimeout = 30 * time.Second

type openFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// Writer stores one JSON document per child per consolidation run in a
// Cloud Storage bucket under <prefix>/<childID>/<timestamp>.json
type Writer struct {
	bucket string
	prefix string
	open   openFunc
	close  func() error
}

var _ interfaces.ReportWriter = (*Writer)(nil)

// New creates a Cloud Storage backed report writer
func New(ctx context.Context, bucket, prefix string) (*Writer, error) {
	if bucket == "" {
		return nil, goerr.New("report bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &Writer{
		bucket: bucket,
		prefix: prefix,
		open: func(ctx context.Context, bucket, object string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = "application/json"
			return w
		},
		close: client.Close,
	}, nil
}

// Close releases the storage client
func (w *Writer) Close() error {
	if w.close == nil {
		return nil
	}
	return w.close()
}

type insightReport struct {
	Pattern             string   `json:"pattern"`
	Subject             string   `json:"subject,omitempty"`
	Description         string   `json:"description"`
	Confidence          float64  `json:"confidence"`
	Recommendations     []string `json:"recommendations"`
	SupportingMemoryIDs []string `json:"supporting_memory_ids"`
}

type consolidationReport struct {
	ChildID              string          `json:"child_id"`
	StartedAt            time.Time       `json:"started_at"`
	ConsolidatedMemories int             `json:"consolidated_memories"`
	MergedMemories       int             `json:"merged_memories"`
	ArchivedMemories     int             `json:"archived_memories"`
	ProcessingTimeMS     int64           `json:"processing_time_ms"`
	NewInsights          []insightReport `json:"new_insights"`
}

func toReport(result *model.ConsolidationResult) *consolidationReport {
	r := &consolidationReport{
		ChildID:              string(result.ChildID),
		StartedAt:            result.StartedAt.UTC(),
		ConsolidatedMemories: result.ConsolidatedMemories,
		MergedMemories:       result.MergedMemories,
		ArchivedMemories:     result.ArchivedMemories,
		ProcessingTimeMS:     result.ProcessingTimeMS(),
		NewInsights:          make([]insightReport, 0, len(result.NewInsights)),
	}
	for _, in := range result.NewInsights {
		ids := make([]string, len(in.SupportingMemoryIDs))
		for i, id := range in.SupportingMemoryIDs {
			ids[i] = string(id)
		}
		r.NewInsights = append(r.NewInsights, insightReport{
			Pattern:             string(in.Pattern),
			Subject:             in.Subject,
			Description:         in.Description,
			Confidence:          in.Confidence,
			Recommendations:     in.Recommendations,
			SupportingMemoryIDs: ids,
		})
	}
	return r
}

func (w *Writer) objectName(result *model.ConsolidationResult) string {
	name := fmt.Sprintf("%s.json", result.StartedAt.UTC().Format("20060102T150405.000000000Z"))
	return path.Join(w.prefix, string(result.ChildID), name)
}

// WriteConsolidation uploads result as JSON
func (w *Writer) WriteConsolidation(ctx context.Context, result *model.ConsolidationResult) error {
	if result == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	object := w.objectName(result)
	wc := w.open(ctx, w.bucket, object)

	if err := json.NewEncoder(wc).Encode(toReport(result)); err != nil {
		_ = wc.Close()
		return goerr.Wrap(err, "failed to encode consolidation report",
			goerr.V("bucket", w.bucket),
			goerr.V("object", object))
	}
	if err := wc.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload consolidation report",
			goerr.V("bucket", w.bucket),
			goerr.V("object", object))
	}

	return nil
}
