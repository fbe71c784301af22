package tool

import "context"

// ProgressFunc receives short status lines while a tool runs, so the
// conversation handler can show that Appu is "thinking".
type ProgressFunc func(ctx context.Context, message string)

type progressKey struct{}

// WithProgress returns a context carrying fn
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// Progress reports message through the ProgressFunc in ctx, if any
func Progress(ctx context.Context, message string) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok {
		fn(ctx, message)
	}
}
