package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// EmbeddingUsage accumulates the embedding tokens spent on one hook invocation.
// The HTTP handler creates it, the embedder decorator adds to it, and the handler
// reports it in a response header. Safe for concurrent use; methods accept a nil receiver.
type EmbeddingUsage struct {
	tokens atomic.Int64
	calls  atomic.Int64
}

// WithUsage returns a context carrying a fresh usage collector.
func WithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFrom returns the collector in ctx, or nil.
func UsageFrom(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(usageKey{}).(*EmbeddingUsage)
	return u
}

// Record adds one provider call and its tokens.
func (u *EmbeddingUsage) Record(tokens int) {
	if u == nil {
		return
	}
	u.calls.Add(1)
	u.tokens.Add(int64(tokens))
}

// Tokens returns the tokens recorded so far.
func (u *EmbeddingUsage) Tokens() int {
	if u == nil {
		return 0
	}
	return int(u.tokens.Load())
}

// Calls returns how many provider calls were recorded.
func (u *EmbeddingUsage) Calls() int {
	if u == nil {
		return 0
	}
	return int(u.calls.Load())
}
