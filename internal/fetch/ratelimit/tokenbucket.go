package ratelimit

import (
    "context"
    "sync"
    "time"

    "pricefeed/internal/fetch"
    "pricefeed/internal/quote"
)

// TokenBucket is a stdlib-only token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
    rate     float64
    capacity float64

    mu     sync.Mutex
    tokens float64
    last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
    if tokensPerSecond <= 0 {
        tokensPerSecond = 0.0000001
    }
    if burst <= 0 {
        burst = 1
    }
    return &TokenBucket{
        rate:     tokensPerSecond,
        capacity: float64(burst),
        tokens:   float64(burst), // start full to allow an initial burst
        last:     time.Now(),
    }
}

// wait blocks until one token is available or context is canceled.
func (tb *TokenBucket) wait(ctx context.Context) error {
    for {
        tb.mu.Lock()
        now := time.Now()
        // Refill
        elapsed := now.Sub(tb.last).Seconds()
        if elapsed > 0 {
            tb.tokens += elapsed * tb.rate
            if tb.tokens > tb.capacity {
                tb.tokens = tb.capacity
            }
            tb.last = now
        }
        if tb.tokens >= 1 {
            tb.tokens -= 1
            tb.mu.Unlock()
            return nil
        }
        deficit := 1 - tb.tokens
        tb.mu.Unlock()
        // time needed to accumulate one token
        waitDur := time.Duration(deficit/tb.rate*1e9) * time.Nanosecond
        if waitDur <= 0 {
            waitDur = time.Millisecond
        }
        timer := time.NewTimer(waitDur)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
    }
}

// Batch gates a batch fetcher behind a token bucket.
type Batch struct {
    B  fetch.Batch
    TB *TokenBucket
}

func (b *Batch) FetchBatch(ctx context.Context, symbols []string) (map[string]quote.Record, error) {
    if b.TB != nil {
        if err := b.TB.wait(ctx); err != nil {
            return nil, err
        }
    }
    return b.B.FetchBatch(ctx, symbols)
}

// Single gates the per-symbol degradation path behind a token bucket,
// shared with the batch path when both wrap the same bucket.
type Single struct {
    S  fetch.Single
    TB *TokenBucket
}

func (s *Single) FetchOne(ctx context.Context, symbol string) (quote.Record, error) {
    if s.TB != nil {
        if err := s.TB.wait(ctx); err != nil {
            return quote.Record{}, err
        }
    }
    return s.S.FetchOne(ctx, symbol)
}
