package quote

import (
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// Source identifies where a resolved price came from.
type Source string

const (
    SourceManual     Source = "manual"
    SourceCache      Source = "cache"
    SourceBatch      Source = "batch"
    SourceSingle     Source = "single"
    SourceUnresolved Source = "unresolved"
)

// Record is the normalized per-symbol shape returned by upstream fetchers.
// Price fields are nil when the upstream response lacked them; an empty
// pre/post field outside regular hours is normal, not an error.
type Record struct {
    Symbol      string           `json:"symbol"`
    Regular     *decimal.Decimal `json:"regular,omitempty"`
    Pre         *decimal.Decimal `json:"pre,omitempty"`
    Post        *decimal.Decimal `json:"post,omitempty"`
    MarketState string           `json:"market_state,omitempty"`
    FetchedAt   time.Time        `json:"fetched_at"`
}

// Resolved is the per-symbol output of a resolution run.
// Price is meaningful only when Source is not SourceUnresolved.
type Resolved struct {
    Price  decimal.Decimal `json:"price"`
    Source Source          `json:"source"`
    At     time.Time       `json:"at"`
}

// Normalize canonicalizes a ticker symbol for use as a map key.
func Normalize(symbol string) string {
    return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeAll canonicalizes and de-duplicates symbols preserving order.
func NormalizeAll(symbols []string) []string {
    out := make([]string, 0, len(symbols))
    seen := make(map[string]struct{}, len(symbols))
    for _, s := range symbols {
        n := Normalize(s)
        if n == "" {
            continue
        }
        if _, dup := seen[n]; dup {
            continue
        }
        seen[n] = struct{}{}
        out = append(out, n)
    }
    return out
}
