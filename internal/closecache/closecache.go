package closecache

import (
    "encoding/json"
    "errors"
    "log"
    "os"
    "sync"

    "github.com/shopspring/decimal"
)

// key is (symbol, exchange-local trading date).
type key struct {
    Symbol string
    Date   string
}

// Cache memoizes the regular-session closing price per symbol per trading
// day, so repeated after-hours resolutions reuse the first observed close
// instead of calling upstream again. Entries for a given day are written
// once (first-writer-wins); a new trading date naturally misses.
type Cache struct {
    path string // optional JSON snapshot; empty disables persistence

    mu     sync.RWMutex
    closes map[key]decimal.Decimal
    loaded bool
}

// New returns a cache, optionally snapshotted to the JSON file at path so a
// restart after close keeps serving the day's prices. Empty path keeps the
// cache memory-only.
func New(path string) *Cache {
    return &Cache{path: path}
}

// Get returns the cached close for (symbol, tradingDate).
func (c *Cache) Get(symbol, tradingDate string) (decimal.Decimal, bool) {
    c.mu.Lock()
    c.load()
    p, ok := c.closes[key{symbol, tradingDate}]
    c.mu.Unlock()
    return p, ok
}

// Put stores the close for (symbol, tradingDate) unless one is already
// present. It reports whether the write took effect. Entries from earlier
// dates for the same symbol are pruned on the way.
func (c *Cache) Put(symbol, tradingDate string, price decimal.Decimal) bool {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.load()
    k := key{symbol, tradingDate}
    if _, ok := c.closes[k]; ok {
        return false
    }
    for old := range c.closes {
        if old.Symbol == symbol && old.Date != tradingDate {
            delete(c.closes, old)
        }
    }
    c.closes[k] = price
    c.save()
    return true
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.load()
    return len(c.closes)
}

type snapshotEntry struct {
    Symbol string          `json:"symbol"`
    Date   string          `json:"date"`
    Close  decimal.Decimal `json:"close"`
}

// load reads the snapshot once. Snapshot problems degrade to an empty cache.
func (c *Cache) load() {
    if c.loaded {
        return
    }
    c.closes = make(map[key]decimal.Decimal)
    c.loaded = true
    if c.path == "" {
        return
    }
    b, err := os.ReadFile(c.path)
    if err != nil {
        if !errors.Is(err, os.ErrNotExist) {
            log.Printf("closecache: read %s: %v (starting empty)", c.path, err)
        }
        return
    }
    var entries []snapshotEntry
    if err := json.Unmarshal(b, &entries); err != nil {
        log.Printf("closecache: parse %s: %v (starting empty)", c.path, err)
        return
    }
    for _, e := range entries {
        c.closes[key{e.Symbol, e.Date}] = e.Close
    }
}

func (c *Cache) save() {
    if c.path == "" {
        return
    }
    entries := make([]snapshotEntry, 0, len(c.closes))
    for k, p := range c.closes {
        entries = append(entries, snapshotEntry{Symbol: k.Symbol, Date: k.Date, Close: p})
    }
    b, err := json.MarshalIndent(entries, "", "  ")
    if err != nil {
        log.Printf("closecache: encode %s: %v", c.path, err)
        return
    }
    tmp := c.path + ".tmp"
    if err := os.WriteFile(tmp, b, 0o644); err != nil {
        log.Printf("closecache: write %s: %v", tmp, err)
        return
    }
    if err := os.Rename(tmp, c.path); err != nil {
        log.Printf("closecache: rename %s: %v", c.path, err)
    }
}
