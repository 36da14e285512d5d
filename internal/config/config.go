package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Yahoo struct {
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type Resolve struct {
    // Retries is the batch retry budget after the first attempt.
    Retries int `json:"retries"`
    // BackoffSec is the fixed spacing between batch attempts.
    BackoffSec int `json:"backoff_sec"`
    // CheckIntervalSec is consumed by the external scheduler, not by the
    // pipeline itself; carried here so one file configures both.
    CheckIntervalSec int `json:"check_interval_sec"`
}

type Data struct {
    ManualPricesFile string `json:"manual_prices_file"`
    TimestampsFile   string `json:"timestamps_file"`
    CloseCacheFile   string `json:"close_cache_file"`
    CalendarFile     string `json:"calendar_file"`
}

type Config struct {
    Server  Server  `json:"server"`
    Yahoo   Yahoo   `json:"yahoo"`
    Resolve Resolve `json:"resolve"`
    Data    Data    `json:"data"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10},
        Yahoo: Yahoo{
            Endpoint:             "https://query1.finance.yahoo.com",
            MaxRequestsPerMinute: 120,
            Burst:                2,
        },
        Resolve: Resolve{
            Retries:          2,
            BackoffSec:       1,
            CheckIntervalSec: 30,
        },
        Data: Data{
            ManualPricesFile: "data/manual_prices.json",
            TimestampsFile:   "data/price_timestamps.json",
            CloseCacheFile:   "data/close_cache.json",
        },
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("YAHOO_ENDPOINT"); v != "" { cfg.Yahoo.Endpoint = v }
    if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("YAHOO_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("YAHOO_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.Burst = x }
    }
    if v := os.Getenv("RESOLVE_RETRIES"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Resolve.Retries = x }
    }
    if v := os.Getenv("RESOLVE_BACKOFF_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Resolve.BackoffSec = x }
    }
    if v := os.Getenv("CHECK_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Resolve.CheckIntervalSec = x }
    }
    if v := os.Getenv("MANUAL_PRICES_FILE"); v != "" { cfg.Data.ManualPricesFile = v }
    if v := os.Getenv("TIMESTAMPS_FILE"); v != "" { cfg.Data.TimestampsFile = v }
    if v := os.Getenv("CLOSE_CACHE_FILE"); v != "" { cfg.Data.CloseCacheFile = v }
    if v := os.Getenv("CALENDAR_FILE"); v != "" { cfg.Data.CalendarFile = v }
}
