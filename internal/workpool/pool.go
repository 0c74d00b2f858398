// Package workpool bounds how many CPU-heavy jobs run at once.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent report builds using a weighted semaphore. Every
// on-demand report goes through one shared Pool so a burst of requests
// cannot render charts on every core at once.
type Pool struct {
	sem   *semaphore.Weighted
	limit int
}

// NewPool creates a Pool that allows at most limit concurrent jobs.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit returns the number of slots.
func (p *Pool) Limit() int {
	if p == nil {
		return 0
	}
	return p.limit
}

// Run acquires a slot, runs fn, and releases the slot. It blocks while all
// slots are busy and fails with the context error if ctx ends first.
// A nil Pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	if p == nil || p.sem == nil {
		return fn(ctx)
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for build slot: %w", err)
	}
	defer p.sem.Release(1)
	return fn(ctx)
}
