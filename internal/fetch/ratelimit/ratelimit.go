package ratelimit

import (
    "context"
    "sync"
    "time"

    "pricefeed/internal/fetch"
    "pricefeed/internal/quote"
)

// MinInterval wraps a batch fetcher and enforces a minimum time between
// outbound calls. Free quote APIs throttle aggressively; spacing the batch
// call keeps a tight resolve loop inside the upstream's budget.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
    B        fetch.Batch
    Interval time.Duration

    mu   sync.Mutex
    last time.Time
}

func (m *MinInterval) FetchBatch(ctx context.Context, symbols []string) (map[string]quote.Record, error) {
    if m.Interval > 0 {
        m.mu.Lock()
        wait := time.Until(m.last.Add(m.Interval))
        m.mu.Unlock()
        if wait > 0 {
            t := time.NewTimer(wait)
            defer t.Stop()
            select {
            case <-ctx.Done():
                return nil, ctx.Err()
            case <-t.C:
            }
        }
    }
    recs, err := m.B.FetchBatch(ctx, symbols)
    if m.Interval > 0 {
        m.mu.Lock()
        m.last = time.Now()
        m.mu.Unlock()
    }
    return recs, err
}
