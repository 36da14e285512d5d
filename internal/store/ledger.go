package store

import (
    "encoding/json"
    "errors"
    "log"
    "os"
    "path/filepath"
    "sync"
    "time"

    "pricefeed/internal/quote"
)

// Stamp records when a symbol's price was last refreshed and by which source.
type Stamp struct {
    At     time.Time    `json:"at"`
    Source quote.Source `json:"source"`
}

// Ledger persists per-symbol last-update stamps. It is written by the
// resolution pipeline and read by whatever displays staleness. Persistence
// failures are logged and never block resolution.
type Ledger struct {
    path string

    mu     sync.RWMutex
    stamps map[string]Stamp
    loaded bool
}

// NewLedger opens the timestamp ledger backed by the JSON file at path.
func NewLedger(path string) *Ledger {
    return &Ledger{path: path}
}

func (l *Ledger) load() {
    if l.loaded {
        return
    }
    l.stamps = make(map[string]Stamp)
    l.loaded = true
    b, err := os.ReadFile(l.path)
    if err != nil {
        if !errors.Is(err, os.ErrNotExist) {
            log.Printf("ledger: read %s: %v (starting empty)", l.path, err)
        }
        return
    }
    var raw map[string]Stamp
    if err := json.Unmarshal(b, &raw); err != nil {
        log.Printf("ledger: parse %s: %v (starting empty)", l.path, err)
        return
    }
    l.stamps = raw
}

// Record stamps symbol with (at, source). Timestamps only move forward: a
// stamp older than the current one is dropped, so a stale concurrent
// resolution cannot roll a symbol back.
func (l *Ledger) Record(symbol string, at time.Time, source quote.Source) {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.load()
    if cur, ok := l.stamps[symbol]; ok && at.Before(cur.At) {
        return
    }
    l.stamps[symbol] = Stamp{At: at, Source: source}
    l.save()
}

// Get returns the stamp for symbol, if any.
func (l *Ledger) Get(symbol string) (Stamp, bool) {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.load()
    s, ok := l.stamps[symbol]
    return s, ok
}

// All returns a copy of every stamp.
func (l *Ledger) All() map[string]Stamp {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.load()
    out := make(map[string]Stamp, len(l.stamps))
    for k, v := range l.stamps {
        out[k] = v
    }
    return out
}

// LastUpdate returns the newest stamp across all symbols, or zero when the
// ledger is empty.
func (l *Ledger) LastUpdate() time.Time {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.load()
    var newest time.Time
    for _, s := range l.stamps {
        if s.At.After(newest) {
            newest = s.At
        }
    }
    return newest
}

func (l *Ledger) save() {
    b, err := json.MarshalIndent(l.stamps, "", "  ")
    if err != nil {
        log.Printf("ledger: encode %s: %v", l.path, err)
        return
    }
    if dir := filepath.Dir(l.path); dir != "." && dir != "" {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            log.Printf("ledger: mkdir %s: %v", dir, err)
            return
        }
    }
    if err := writeFileAtomic(l.path, b); err != nil {
        log.Printf("ledger: %v", err)
    }
}
