package report

import (
	"context"
	"io"
)

// NewWithOpener builds a Writer whose objects are produced by open
func NewWithOpener(bucket, prefix string, open func(ctx context.Context, bucket, object string) io.WriteCloser) *Writer {
	return &Writer{bucket: bucket, prefix: prefix, open: open}
}
