package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "net/http"
    "os"
    "sort"
    "strings"
    "time"

    "pricefeed/internal/closecache"
    "pricefeed/internal/config"
    "pricefeed/internal/fetch"
    "pricefeed/internal/fetch/ratelimit"
    "pricefeed/internal/fetch/yahoo"
    "pricefeed/internal/httpx"
    "pricefeed/internal/market"
    "pricefeed/internal/quote"
    "pricefeed/internal/resolve"
    "pricefeed/internal/store"
)

func main() {
    var symbolsCSV string
    var timeout int
    var retries int
    var backoffSec int
    var configPath string

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL,MSFT"), "comma-separated ticker symbols")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
    flag.IntVar(&retries, "retries", -1, "batch retry budget (-1 = use config)")
    flag.IntVar(&backoffSec, "backoff", -1, "retry backoff seconds (-1 = use config)")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
    flag.Parse()

    // Load config (optional) and merge with flags/env
    cfg, err := config.Load(configPath)
    if err != nil { log.Fatalf("config: %v", err) }
    if timeout != 0 { cfg.Server.RequestTimeoutSec = timeout }
    if retries >= 0 { cfg.Resolve.Retries = retries }
    if backoffSec >= 0 { cfg.Resolve.BackoffSec = backoffSec }

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 {
        log.Fatal("no symbols given")
    }

    cal, err := market.Load(cfg.Data.CalendarFile)
    if err != nil { log.Fatalf("calendar: %v", err) }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    yc, err := yahoo.NewClient(
        yahoo.WithBaseURL(cfg.Yahoo.Endpoint),
        yahoo.WithHTTPClient(httpClient.HTTP),
        yahoo.WithHeader(http.Header{"User-Agent": []string{"pricefeed/1.0"}}),
    )
    if err != nil { log.Fatalf("yahoo client: %v", err) }

    var batch fetch.Batch = yc
    var single fetch.Single = yc
    if cfg.Yahoo.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
        burst := cfg.Yahoo.Burst
        if burst <= 0 { burst = 1 }
        tb := ratelimit.NewTokenBucket(rate, burst)
        batch = &ratelimit.Batch{B: batch, TB: tb}
        single = &ratelimit.Single{S: single, TB: tb}
    } else if cfg.Yahoo.MinRequestIntervalSec > 0 {
        batch = &ratelimit.MinInterval{B: batch, Interval: time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second}
    }

    cfgRetries := cfg.Resolve.Retries
    if cfgRetries == 0 { cfgRetries = -1 }
    resolver := resolve.New(resolve.Options{
        Manual:   store.NewManual(cfg.Data.ManualPricesFile),
        Ledger:   store.NewLedger(cfg.Data.TimestampsFile),
        Cache:    closecache.New(cfg.Data.CloseCacheFile),
        Batch:    batch,
        Single:   single,
        Calendar: cal,
        Retries:  cfgRetries,
        Backoff:  time.Duration(cfg.Resolve.BackoffSec) * time.Second,
    })

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second*3)
    defer cancel()

    now := time.Now()
    fmt.Printf("session: %s (trading date %s)\n\n", cal.Classify(now), cal.TradingDate(now))

    results := resolver.Resolve(ctx, symbols)

    keys := make([]string, 0, len(results))
    for k := range results { keys = append(keys, k) }
    sort.Strings(keys)

    fmt.Printf("%-10s %12s %-10s %s\n", "SYMBOL", "PRICE", "SOURCE", "UPDATED")
    for _, sym := range keys {
        r := results[sym]
        if r.Source == quote.SourceUnresolved {
            fmt.Printf("%-10s %12s %-10s %s\n", sym, "-", r.Source, "-")
            continue
        }
        fmt.Printf("%-10s %12s %-10s %s\n", sym, r.Price.StringFixed(2), r.Source, r.At.Format(time.RFC3339))
    }
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
