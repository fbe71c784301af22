package async_test

import (
	"context"
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestDispatch(t *testing.T) {
	t.Run("runs handler after caller context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		cancel()

		async.Dispatch(ctx, "test", time.Second, func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("applies timeout", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), "slow", 10*time.Millisecond, func(ctx context.Context) error {
			defer close(done)
			<-ctx.Done()
			return goerr.Wrap(ctx.Err(), "timed out")
		})

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout was not applied")
		}
	})

	t.Run("recovers panic", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), "panic", 0, func(ctx context.Context) error {
			defer close(done)
			panic("boom")
		})
		<-done
	})
}
