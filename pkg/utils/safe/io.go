package safe

import (
	"context"
	"io"

	"github.com/appu-labs/appu/pkg/utils/logging"
)

// Close closes closer and logs a failure instead of returning it. nil is a no-op.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", "error", err.Error())
	}
}

// Write writes data to w and logs a failure. Used after response headers are committed.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write", "error", err.Error(), "bytes", len(data))
	}
}
