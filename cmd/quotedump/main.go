package main

// quotedump fetches the raw upstream quote payload for a handful of symbols
// and prints the session-relevant fields. Handy for checking what the
// upstream actually reports before blaming the pipeline.

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "log"
    "net/http"
    "net/url"
    "os"
    "strings"
    "time"

    "pricefeed/internal/config"
    "pricefeed/internal/httpx"
)

func main() {
    var (
        symbolsCSV string
        outPath    string
        cfgPath    string
        timeoutSec int
    )
    flag.StringVar(&symbolsCSV, "symbols", "AAPL", "comma-separated ticker symbols")
    flag.StringVar(&outPath, "out", "", "write raw response JSON to this file (optional)")
    flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
    flag.IntVar(&timeoutSec, "timeout", 20, "HTTP timeout seconds")
    flag.Parse()

    cfg, err := config.Load(cfgPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 {
        log.Fatal("no symbols given")
    }

    hc := httpx.New(time.Duration(timeoutSec) * time.Second)

    q := url.Values{}
    q.Set("symbols", strings.Join(symbols, ","))
    addr := fmt.Sprintf("%s/v7/finance/quote?%s", cfg.Yahoo.Endpoint, q.Encode())

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
    defer cancel()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, http.NoBody)
    if err != nil {
        log.Fatalf("request: %v", err)
    }
    resp, err := hc.Do(ctx, req)
    if err != nil {
        log.Fatalf("fetch: %v", err)
    }
    defer resp.Body.Close()
    body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
    if err != nil {
        log.Fatalf("read: %v", err)
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        log.Fatalf("GET %s -> %d: %s", addr, resp.StatusCode, string(body[:min(len(body), 512)]))
    }

    if outPath != "" {
        if err := os.WriteFile(outPath, body, 0o644); err != nil {
            log.Fatalf("write %s: %v", outPath, err)
        }
        log.Printf("raw response written to %s (%d bytes)", outPath, len(body))
    }

    var api struct {
        QuoteResponse struct {
            Result []map[string]any `json:"result"`
        } `json:"quoteResponse"`
    }
    if err := json.Unmarshal(body, &api); err != nil {
        log.Fatalf("decode: %v", err)
    }

    fields := []string{"marketState", "regularMarketPrice", "preMarketPrice", "postMarketPrice", "regularMarketTime"}
    for _, entry := range api.QuoteResponse.Result {
        fmt.Printf("%v\n", entry["symbol"])
        for _, f := range fields {
            if v, ok := entry[f]; ok {
                fmt.Printf("  %-20s %v\n", f, v)
            } else {
                fmt.Printf("  %-20s (absent)\n", f)
            }
        }
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
