package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "io"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/shopspring/decimal"

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

type pricesResponse struct {
    Prices map[string]quote.Resolved `json:"prices"`
}

func main() {
    // Config
    cfgPath := os.Getenv("CONFIG_FILE")
    cfg, err := config.Load(cfgPath)
    if err != nil { log.Fatalf("config: %v", err) }
    port := cfg.Server.Port
    timeoutSec := cfg.Server.RequestTimeoutSec

    cal, err := market.Load(cfg.Data.CalendarFile)
    if err != nil { log.Fatalf("calendar: %v", err) }

    httpClient := httpx.New(time.Duration(timeoutSec) * time.Second)

    yc, err := yahoo.NewClient(
        yahoo.WithBaseURL(cfg.Yahoo.Endpoint),
        yahoo.WithHTTPClient(httpClient.HTTP),
        yahoo.WithHeader(http.Header{
            "User-Agent": []string{"pricefeed/1.0"},
        }),
    )
    if err != nil { log.Fatalf("yahoo client: %v", err) }

    var batch fetch.Batch = yc
    var single fetch.Single = yc
    // Prefer token bucket with burst if RPM is set, otherwise use min-interval
    if cfg.Yahoo.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
        burst := cfg.Yahoo.Burst
        if burst <= 0 { burst = 1 }
        tb := ratelimit.NewTokenBucket(rate, burst)
        batch = &ratelimit.Batch{B: batch, TB: tb}
        single = &ratelimit.Single{S: single, TB: tb}
    } else if cfg.Yahoo.MinRequestIntervalSec > 0 {
        interval := time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second
        batch = &ratelimit.MinInterval{B: batch, Interval: interval}
    }

    manual := store.NewManual(cfg.Data.ManualPricesFile)
    ledger := store.NewLedger(cfg.Data.TimestampsFile)
    cache := closecache.New(cfg.Data.CloseCacheFile)

    retries := cfg.Resolve.Retries
    if retries == 0 { retries = -1 } // explicit zero in config means no retries
    resolver := resolve.New(resolve.Options{
        Manual:   manual,
        Ledger:   ledger,
        Cache:    cache,
        Batch:    batch,
        Single:   single,
        Calendar: cal,
        Retries:  retries,
        Backoff:  time.Duration(cfg.Resolve.BackoffSec) * time.Second,
    })

    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/api/prices", func(w http.ResponseWriter, r *http.Request) {
        switch r.Method {
        case http.MethodGet:
            handleGetPrices(w, r, resolver)
        case http.MethodPost:
            handlePostPrices(w, r, resolver)
        default:
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        }
    })
    mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
        handleSession(w, cal)
    })
    mux.HandleFunc("/api/timestamps", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{"timestamps": ledger.All()})
    })
    mux.HandleFunc("/api/manual", func(w http.ResponseWriter, r *http.Request) {
        handleManual(w, r, manual)
    })

    srv := &http.Server{
        Addr:              ":" + port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Printf("server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

func handleGetPrices(w http.ResponseWriter, r *http.Request, resolver *resolve.Resolver) {
    q := r.URL.Query().Get("symbols")
    if strings.TrimSpace(q) == "" {
        http.Error(w, "missing symbols query param", http.StatusBadRequest)
        return
    }
    symbols := splitCSV(q)
    if len(symbols) > 1000 {
        http.Error(w, "too many symbols (max 1000)", http.StatusBadRequest)
        return
    }
    writePrices(w, r.Context(), resolver, symbols)
}

type postBody struct {
    Symbols []string `json:"symbols"`
}

func handlePostPrices(w http.ResponseWriter, r *http.Request, resolver *resolve.Resolver) {
    var b postBody
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&b); err != nil {
        http.Error(w, "invalid JSON body", http.StatusBadRequest)
        return
    }
    if len(b.Symbols) == 0 {
        http.Error(w, "symbols cannot be empty", http.StatusBadRequest)
        return
    }
    if len(b.Symbols) > 1000 {
        http.Error(w, "too many symbols (max 1000)", http.StatusBadRequest)
        return
    }
    writePrices(w, r.Context(), resolver, b.Symbols)
}

func writePrices(w http.ResponseWriter, rctx context.Context, resolver *resolve.Resolver, symbols []string) {
    ctx, cancel := context.WithTimeout(rctx, 15*time.Second)
    defer cancel()
    writeJSON(w, pricesResponse{Prices: resolver.Resolve(ctx, symbols)})
}

func handleSession(w http.ResponseWriter, cal market.Calendar) {
    now := time.Now()
    resp := map[string]any{
        "session":      cal.Classify(now),
        "trading_date": cal.TradingDate(now),
        "as_of":        now.UTC(),
    }
    if s := cal.Classify(now); s != market.Regular {
        resp["next_open"] = cal.NextOpen(now)
    }
    writeJSON(w, resp)
}

type manualBody struct {
    Symbol string `json:"symbol"`
    Price  string `json:"price"`
}

func handleManual(w http.ResponseWriter, r *http.Request, manual *store.Manual) {
    switch r.Method {
    case http.MethodGet:
        all, err := manual.All()
        if err != nil {
            http.Error(w, err.Error(), http.StatusInternalServerError)
            return
        }
        writeJSON(w, map[string]any{"manual": all})
    case http.MethodPut, http.MethodPost:
        var b manualBody
        if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
            http.Error(w, "invalid JSON body", http.StatusBadRequest)
            return
        }
        sym := quote.Normalize(b.Symbol)
        if sym == "" {
            http.Error(w, "symbol cannot be empty", http.StatusBadRequest)
            return
        }
        price, err := decimal.NewFromString(b.Price)
        if err != nil || price.Sign() <= 0 {
            http.Error(w, "price must be a positive decimal", http.StatusBadRequest)
            return
        }
        if err := manual.Set(sym, price); err != nil {
            http.Error(w, err.Error(), http.StatusInternalServerError)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    case http.MethodDelete:
        sym := quote.Normalize(r.URL.Query().Get("symbol"))
        if sym == "" {
            http.Error(w, "missing symbol query param", http.StatusBadRequest)
            return
        }
        if err := manual.Delete(sym); err != nil {
            http.Error(w, err.Error(), http.StatusInternalServerError)
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

func writeJSON(w http.ResponseWriter, v any) {
    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
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
