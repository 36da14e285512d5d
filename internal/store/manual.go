package store

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"

    "github.com/shopspring/decimal"
)

// ErrStoreCorrupt reports unreadable or malformed persisted store content.
// A missing file is not corrupt; it is an empty store.
var ErrStoreCorrupt = errors.New("store: corrupt")

// Manual holds user-supplied price overrides. Overrides always beat fetched
// prices; the fetch pipeline never writes here.
//
// The whole file is cached in memory and re-written on every mutation.
type Manual struct {
    path string

    mu     sync.RWMutex
    prices map[string]decimal.Decimal
    loaded bool
}

// NewManual opens the override store backed by the JSON file at path.
// The file is read lazily on first use.
func NewManual(path string) *Manual {
    return &Manual{path: path}
}

func (m *Manual) load() error {
    if m.loaded {
        return nil
    }
    m.prices = make(map[string]decimal.Decimal)
    b, err := os.ReadFile(m.path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) {
            m.loaded = true
            return nil
        }
        return fmt.Errorf("%w: read %s: %v", ErrStoreCorrupt, m.path, err)
    }
    var raw map[string]decimal.Decimal
    if err := json.Unmarshal(b, &raw); err != nil {
        return fmt.Errorf("%w: parse %s: %v", ErrStoreCorrupt, m.path, err)
    }
    m.prices = raw
    m.loaded = true
    return nil
}

// Lookup returns the override for symbol, if one exists.
func (m *Manual) Lookup(symbol string) (decimal.Decimal, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err := m.load(); err != nil {
        return decimal.Decimal{}, false, err
    }
    p, ok := m.prices[symbol]
    return p, ok, nil
}

// All returns a copy of every override.
func (m *Manual) All() (map[string]decimal.Decimal, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err := m.load(); err != nil {
        return nil, err
    }
    out := make(map[string]decimal.Decimal, len(m.prices))
    for k, v := range m.prices {
        out[k] = v
    }
    return out, nil
}

// Set writes or replaces an override and persists immediately.
func (m *Manual) Set(symbol string, price decimal.Decimal) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err := m.load(); err != nil {
        return err
    }
    m.prices[symbol] = price
    return m.save()
}

// Delete removes an override. Removing an absent symbol is a no-op.
func (m *Manual) Delete(symbol string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if err := m.load(); err != nil {
        return err
    }
    if _, ok := m.prices[symbol]; !ok {
        return nil
    }
    delete(m.prices, symbol)
    return m.save()
}

// Clear removes every override.
func (m *Manual) Clear() error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.prices = make(map[string]decimal.Decimal)
    m.loaded = true
    return m.save()
}

func (m *Manual) save() error {
    b, err := json.MarshalIndent(m.prices, "", "  ")
    if err != nil {
        return fmt.Errorf("store: encode %s: %w", m.path, err)
    }
    if dir := filepath.Dir(m.path); dir != "." && dir != "" {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("store: mkdir %s: %w", dir, err)
        }
    }
    return writeFileAtomic(m.path, b)
}

// writeFileAtomic writes via a temp file + rename so a concurrent reader
// never observes a half-written store.
func writeFileAtomic(path string, b []byte) error {
    tmp := path + ".tmp"
    if err := os.WriteFile(tmp, b, 0o644); err != nil {
        return fmt.Errorf("store: write %s: %w", tmp, err)
    }
    if err := os.Rename(tmp, path); err != nil {
        return fmt.Errorf("store: rename %s: %w", path, err)
    }
    return nil
}
