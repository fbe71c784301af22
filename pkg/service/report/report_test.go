package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/service/report"
	"github.com/m-mizutani/gt"
)

type bufferObject struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (b *bufferObject) Close() error {
	b.closed = true
	return b.closeErr
}

func newResult() *model.ConsolidationResult {
	return &model.ConsolidationResult{
		ChildID:              "child-1",
		ConsolidatedMemories: 1,
		MergedMemories:       2,
		ArchivedMemories:     3,
		ProcessingTime:       1500 * time.Millisecond,
		StartedAt:            time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		NewInsights: []model.Insight{
			{
				Pattern:             types.InsightRecurringInterest,
				Subject:             "animals",
				Description:         "recurring interest in animals",
				Confidence:          0.3,
				Recommendations:     []string{"talk about animals"},
				SupportingMemoryIDs: []model.MemoryID{"m1", "m2", "m3"},
			},
		},
	}
}

func TestWriteConsolidation(t *testing.T) {
	t.Run("writes JSON under child prefix", func(t *testing.T) {
		obj := &bufferObject{}
		var gotBucket, gotObject string
		w := report.NewWithOpener("reports", "consolidation", func(ctx context.Context, bucket, object string) io.WriteCloser {
			gotBucket = bucket
			gotObject = object
			return obj
		})

		gt.NoError(t, w.WriteConsolidation(context.Background(), newResult())).Required()
		gt.Value(t, gotBucket).Equal("reports")
		gt.Value(t, gotObject).Equal("consolidation/child-1/20260304T050607.000000000Z.json")
		gt.Bool(t, obj.closed).True()

		var body map[string]any
		gt.NoError(t, json.Unmarshal(obj.Bytes(), &body)).Required()
		gt.Value(t, body["child_id"]).Equal(any("child-1"))
		gt.Value(t, body["merged_memories"]).Equal(any(float64(2)))
		gt.Value(t, body["processing_time_ms"]).Equal(any(float64(1500)))
		insights, ok := body["new_insights"].([]any)
		gt.Bool(t, ok).True()
		gt.Array(t, insights).Length(1)
	})

	t.Run("upload error is returned", func(t *testing.T) {
		errUpload := errors.New("permission denied")
		w := report.NewWithOpener("reports", "", func(ctx context.Context, bucket, object string) io.WriteCloser {
			return &bufferObject{closeErr: errUpload}
		})

		gt.Error(t, w.WriteConsolidation(context.Background(), newResult())).Is(errUpload)
	})

	t.Run("nil result is ignored", func(t *testing.T) {
		called := false
		w := report.NewWithOpener("reports", "", func(ctx context.Context, bucket, object string) io.WriteCloser {
			called = true
			return &bufferObject{}
		})

		gt.NoError(t, w.WriteConsolidation(context.Background(), nil))
		gt.Bool(t, called).False()
	})
}

func TestWriterWithCloudStorage(t *testing.T) {
	bucket := os.Getenv("TEST_REPORT_BUCKET")
	if bucket == "" {
		t.Skip("TEST_REPORT_BUCKET not set")
	}

	ctx := context.Background()
	w, err := report.New(ctx, bucket, "test")
	gt.NoError(t, err).Required()
	defer func() {
		gt.NoError(t, w.Close())
	}()

	gt.NoError(t, w.WriteConsolidation(ctx, newResult()))
}
