package resolve

import (
    "context"
    "log"
    "sort"
    "strings"
    "time"

    "golang.org/x/sync/singleflight"

    "github.com/shopspring/decimal"
    "pricefeed/internal/closecache"
    "pricefeed/internal/fetch"
    "pricefeed/internal/market"
    "pricefeed/internal/quote"
    "pricefeed/internal/store"
)

const (
    // DefaultRetries is the batch retry budget after the first attempt.
    DefaultRetries = 2
    // DefaultBackoff is the spacing between batch attempts.
    DefaultBackoff = time.Second
)

// Options configures a Resolver. Each Resolver owns its configuration;
// multiple instances (e.g. under test) do not interfere.
type Options struct {
    Manual   *store.Manual
    Ledger   *store.Ledger
    Cache    *closecache.Cache
    Batch    fetch.Batch
    Single   fetch.Single
    Calendar market.Calendar

    // Retries is the number of batch re-attempts after the first failure
    // before degrading to per-symbol fetches. Zero means DefaultRetries;
    // use a negative value for no retries.
    Retries int
    // Backoff is the fixed spacing between batch attempts.
    Backoff time.Duration
    // Now is a clock hook for tests. Defaults to time.Now.
    Now func() time.Time
}

// Resolver turns a symbol set into prices following the priority chain
// manual > post-close cache > batch fetch > per-symbol fetch.
type Resolver struct {
    opts Options
    sf   singleflight.Group
}

// New builds a Resolver, filling in defaulted options.
func New(opts Options) *Resolver {
    if opts.Retries == 0 {
        opts.Retries = DefaultRetries
    } else if opts.Retries < 0 {
        opts.Retries = 0
    }
    if opts.Backoff <= 0 {
        opts.Backoff = DefaultBackoff
    }
    if opts.Now == nil {
        opts.Now = time.Now
    }
    if opts.Manual == nil {
        opts.Manual = store.NewManual("")
    }
    if opts.Cache == nil {
        opts.Cache = closecache.New("")
    }
    return &Resolver{opts: opts}
}

// Resolve returns a price for every requested symbol, or an entry with
// SourceUnresolved when none was obtainable this call. Failures are scoped
// to the smallest unit possible; one bad symbol never blocks its siblings.
func (r *Resolver) Resolve(ctx context.Context, symbols []string) map[string]quote.Resolved {
    symbols = quote.NormalizeAll(symbols)
    now := r.opts.Now().UTC()
    session := r.opts.Calendar.Classify(now)
    tradingDate := r.opts.Calendar.TradingDate(now)

    results := make(map[string]quote.Resolved, len(symbols))

    // 1. Manual overrides win unconditionally; no fetch is attempted for them.
    needFetch := make([]string, 0, len(symbols))
    for _, sym := range symbols {
        price, ok, err := r.lookupManual(sym)
        if err != nil {
            // Corrupt store degrades to "no overrides" for the whole run.
            needFetch = append(needFetch, sym)
            continue
        }
        if ok {
            results[sym] = r.commit(sym, price, quote.SourceManual, now)
            continue
        }
        needFetch = append(needFetch, sym)
    }

    // 2. Outside active trading, today's memoized closes avoid the network.
    stillNeed := needFetch
    if session == market.Post || session == market.Closed {
        stillNeed = make([]string, 0, len(needFetch))
        for _, sym := range needFetch {
            if price, ok := r.opts.Cache.Get(sym, tradingDate); ok {
                results[sym] = r.commit(sym, price, quote.SourceCache, now)
                continue
            }
            stillNeed = append(stillNeed, sym)
        }
    }

    if len(stillNeed) == 0 {
        return results
    }

    // 3. One batch call (with retry budget), degrading per symbol after.
    records, sources := r.runFetch(ctx, stillNeed, tradingDate)

    // 4. Select the session's price field and commit.
    for _, sym := range stillNeed {
        rec, ok := records[sym]
        if !ok {
            results[sym] = quote.Resolved{Source: quote.SourceUnresolved, At: now}
            continue
        }
        if session == market.Closed && rec.Regular != nil {
            r.opts.Cache.Put(sym, tradingDate, *rec.Regular)
        }
        price := selectPrice(rec, session)
        if price == nil {
            // Legitimately empty session field (e.g. no after-hours trade).
            results[sym] = quote.Resolved{Source: quote.SourceUnresolved, At: now}
            continue
        }
        results[sym] = r.commit(sym, *price, sources[sym], now)
    }
    return results
}

func (r *Resolver) lookupManual(sym string) (decimal.Decimal, bool, error) {
    price, ok, err := r.opts.Manual.Lookup(sym)
    if err != nil {
        log.Printf("resolve: manual store: %v (treating as no override)", err)
        return decimal.Decimal{}, false, err
    }
    return price, ok, nil
}

// commit stamps the ledger and builds the output entry.
func (r *Resolver) commit(sym string, price decimal.Decimal, src quote.Source, now time.Time) quote.Resolved {
    if r.opts.Ledger != nil {
        r.opts.Ledger.Record(sym, now, src)
    }
    return quote.Resolved{Price: price, Source: src, At: now}
}

// fetchPhase drives the retry/degrade state machine for one fetch stage.
type fetchPhase int

const (
    phaseAttempting fetchPhase = iota
    phaseRetrying
    phaseDegraded
    phaseFailed
)

// runFetch performs the batch call with the configured retry budget, then
// degrades to the single-symbol fetcher for exactly the symbols still
// missing. It returns the collected records and the source each came from.
func (r *Resolver) runFetch(ctx context.Context, symbols []string, tradingDate string) (map[string]quote.Record, map[string]quote.Source) {
    records := make(map[string]quote.Record, len(symbols))
    sources := make(map[string]quote.Source, len(symbols))

    batch, err := r.batchOnce(ctx, symbols, tradingDate)
    if err != nil {
        log.Printf("resolve: batch fetch failed after retries: %v (degrading to per-symbol)", err)
    }
    for sym, rec := range batch {
        records[sym] = rec
        sources[sym] = quote.SourceBatch
    }

    // Per-symbol degradation for whatever the batch did not cover. Symbols
    // already resolved from the batch are kept, not re-fetched.
    missing := make([]string, 0, len(symbols))
    for _, sym := range symbols {
        if _, ok := records[sym]; !ok {
            missing = append(missing, sym)
        }
    }
    if len(missing) == 0 || r.opts.Single == nil {
        return records, sources
    }
    for _, sym := range missing {
        rec, err := r.opts.Single.FetchOne(ctx, sym)
        if err != nil {
            log.Printf("resolve: single fetch %s: %v", sym, err)
            continue
        }
        records[sym] = rec
        sources[sym] = quote.SourceSingle
    }
    return records, sources
}

// batchOnce coalesces concurrent identical batch calls so overlapping
// resolutions share one outbound request, then walks the retry phases with
// fixed backoff.
func (r *Resolver) batchOnce(ctx context.Context, symbols []string, tradingDate string) (map[string]quote.Record, error) {
    sorted := append([]string(nil), symbols...)
    sort.Strings(sorted)
    key := tradingDate + "|" + strings.Join(sorted, ",")

    v, err, _ := r.sf.Do(key, func() (any, error) {
        phase := phaseAttempting
        attempt := 0
        var lastErr error
        for {
            switch phase {
            case phaseAttempting, phaseRetrying:
                recs, err := r.opts.Batch.FetchBatch(ctx, symbols)
                if err == nil {
                    return recs, nil
                }
                lastErr = err
                if attempt >= r.opts.Retries {
                    phase = phaseFailed
                    continue
                }
                attempt++
                t := time.NewTimer(r.opts.Backoff)
                select {
                case <-ctx.Done():
                    t.Stop()
                    return nil, ctx.Err()
                case <-t.C:
                }
                phase = phaseRetrying
            case phaseFailed:
                return nil, lastErr
            default: // phaseDegraded is handled by the caller
                return nil, lastErr
            }
        }
    })
    if err != nil {
        return nil, err
    }
    return v.(map[string]quote.Record), nil
}

// selectPrice picks the quote field the session calls for. A nil return
// means the field was absent and the symbol is unresolved this call.
func selectPrice(rec quote.Record, session market.Session) *decimal.Decimal {
    switch session {
    case market.Pre:
        return rec.Pre
    case market.Regular:
        return rec.Regular
    case market.Post:
        return rec.Post
    default: // Closed: today's close
        return rec.Regular
    }
}
