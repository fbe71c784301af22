package async

import (
	"context"
	"time"

	"github.com/appu-labs/appu/pkg/utils/errutil"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine, detached from ctx cancellation
// but keeping its logger. The handler gets at most timeout to finish;
// a zero timeout means no deadline. Errors and panics are logged.
func Dispatch(ctx context.Context, name string, timeout time.Duration, handler func(ctx context.Context) error) {
	logger := logging.From(ctx).With("task", name)
	bgCtx := logging.With(context.Background(), logger)

	go func() {
		runCtx := bgCtx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bgCtx, timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(runCtx, goerr.New("panic in async task", goerr.V("panic", r)), "async task panicked")
			}
		}()

		if err := handler(runCtx); err != nil {
			_ = errutil.Handle(runCtx, err, "async task failed")
		}
	}()
}
