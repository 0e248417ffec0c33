package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// BoardRateLimiter enforces a minimum delay between requests to the same
// board API. One pipeline run fans a single board out over many
// query/location pairs, so the shared limiter keeps us polite.
type BoardRateLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: board name
	minDelay time.Duration
}

// NewBoardRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same board.
func NewBoardRateLimiter(minDelay time.Duration) *BoardRateLimiter {
	return &BoardRateLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to the given board.
// Returns an error if the context is cancelled while waiting.
func (r *BoardRateLimiter) Wait(ctx context.Context, board string) error {
	r.mu.Lock()
	last, ok := r.lastCall[board]
	now := time.Now()

	if !ok {
		// First request for this board — no wait needed.
		r.lastCall[board] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= r.minDelay {
		// Enough time has passed — proceed immediately.
		r.lastCall[board] = now
		r.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := r.minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", board, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[board] = time.Now()
	r.mu.Unlock()

	return nil
}

// RateLimitedBoard is a decorator that enforces board-level rate limiting
// before delegating to the wrapped Board.
type RateLimitedBoard struct {
	inner   model.Board
	limiter *BoardRateLimiter
}

// NewRateLimitedBoard wraps a Board with rate limiting. All searches against
// the same board share the limiter's per-board clock.
func NewRateLimitedBoard(inner model.Board, limiter *BoardRateLimiter) *RateLimitedBoard {
	return &RateLimitedBoard{inner: inner, limiter: limiter}
}

func (b *RateLimitedBoard) Name() string { return b.inner.Name() }

// Search waits for the rate limiter to allow a request, then delegates to
// the wrapped board.
func (b *RateLimitedBoard) Search(ctx context.Context, query, location string) ([]model.JobRecord, error) {
	if err := b.limiter.Wait(ctx, b.inner.Name()); err != nil {
		return nil, err
	}
	return b.inner.Search(ctx, query, location)
}
