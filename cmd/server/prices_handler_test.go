package main

import (
    "context"
    "encoding/json"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/shopspring/decimal"

    "pricefeed/internal/market"
    "pricefeed/internal/quote"
    "pricefeed/internal/resolve"
    "pricefeed/internal/store"
)

type fakeBatch struct{ records map[string]quote.Record }

func (f fakeBatch) FetchBatch(_ context.Context, symbols []string) (map[string]quote.Record, error) {
    out := make(map[string]quote.Record, len(symbols))
    for _, s := range symbols {
        if rec, ok := f.records[s]; ok { out[s] = rec }
    }
    return out, nil
}

// regularOpen is a Tuesday 10:00 ET.
var regularOpen = time.Date(2025, 1, 7, 15, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T, manual *store.Manual, batch fakeBatch) *resolve.Resolver {
    t.Helper()
    return resolve.New(resolve.Options{
        Manual:   manual,
        Ledger:   store.NewLedger(filepath.Join(t.TempDir(), "ts.json")),
        Batch:    batch,
        Calendar: market.Default(),
        Retries:  -1,
        Now:      func() time.Time { return regularOpen },
    })
}

func dec(t *testing.T, s string) decimal.Decimal {
    t.Helper()
    d, err := decimal.NewFromString(s)
    if err != nil { t.Fatalf("decimal %q: %v", s, err) }
    return d
}

func TestGetPrices_ManualBeatsBatch(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))
    if err := manual.Set("AAPL", dec(t, "123.45")); err != nil { t.Fatalf("set: %v", err) }
    msft := dec(t, "421.07")
    resolver := newTestResolver(t, manual, fakeBatch{records: map[string]quote.Record{
        "MSFT": {Symbol: "MSFT", Regular: &msft, MarketState: "REGULAR", FetchedAt: regularOpen},
    }})

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("GET", "/api/prices?symbols=aapl,MSFT", nil)
    handleGetPrices(rr, req, resolver)
    if rr.Code != 200 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }

    var resp pricesResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if len(resp.Prices) != 2 { t.Fatalf("want 2 rows, got %d: %+v", len(resp.Prices), resp.Prices) }
    if got := resp.Prices["AAPL"]; got.Source != quote.SourceManual || !got.Price.Equal(dec(t, "123.45")) {
        t.Fatalf("unexpected AAPL: %+v", got)
    }
    if got := resp.Prices["MSFT"]; got.Source != quote.SourceBatch || !got.Price.Equal(msft) {
        t.Fatalf("unexpected MSFT: %+v", got)
    }
}

func TestGetPrices_UnresolvedSymbolStillListed(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))
    resolver := newTestResolver(t, manual, fakeBatch{})

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("GET", "/api/prices?symbols=FAKESYM", nil)
    handleGetPrices(rr, req, resolver)
    if rr.Code != 200 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }

    var resp pricesResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    got, ok := resp.Prices["FAKESYM"]
    if !ok { t.Fatalf("missing row for unresolved symbol: %+v", resp.Prices) }
    if got.Source != quote.SourceUnresolved { t.Fatalf("unexpected source: %+v", got) }
}

func TestGetPrices_MissingSymbolsParam(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))
    resolver := newTestResolver(t, manual, fakeBatch{})

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("GET", "/api/prices", nil)
    handleGetPrices(rr, req, resolver)
    if rr.Code != 400 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }
}

func TestPostPrices_JSONBody(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))
    aapl := dec(t, "195.42")
    resolver := newTestResolver(t, manual, fakeBatch{records: map[string]quote.Record{
        "AAPL": {Symbol: "AAPL", Regular: &aapl, FetchedAt: regularOpen},
    }})

    rr := httptest.NewRecorder()
    req := httptest.NewRequest("POST", "/api/prices", strings.NewReader(`{"symbols":["AAPL"]}`))
    handlePostPrices(rr, req, resolver)
    if rr.Code != 200 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }

    var resp pricesResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if got := resp.Prices["AAPL"]; got.Source != quote.SourceBatch || !got.Price.Equal(aapl) {
        t.Fatalf("unexpected AAPL: %+v", got)
    }
}

func TestPostPrices_RejectsEmptyAndUnknownFields(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))
    resolver := newTestResolver(t, manual, fakeBatch{})

    for _, body := range []string{`{"symbols":[]}`, `{"tickers":["AAPL"]}`, `not json`} {
        rr := httptest.NewRecorder()
        req := httptest.NewRequest("POST", "/api/prices", strings.NewReader(body))
        handlePostPrices(rr, req, resolver)
        if rr.Code != 400 { t.Fatalf("body %q: status=%d", body, rr.Code) }
    }
}

func TestManual_PutGetDelete(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))

    // put
    rr := httptest.NewRecorder()
    req := httptest.NewRequest("PUT", "/api/manual", strings.NewReader(`{"symbol":"aapl","price":"123.45"}`))
    handleManual(rr, req, manual)
    if rr.Code != 204 { t.Fatalf("put status=%d body=%s", rr.Code, rr.Body.String()) }

    // get
    rr = httptest.NewRecorder()
    req = httptest.NewRequest("GET", "/api/manual", nil)
    handleManual(rr, req, manual)
    if rr.Code != 200 { t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String()) }
    var resp struct {
        Manual map[string]decimal.Decimal `json:"manual"`
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if p, ok := resp.Manual["AAPL"]; !ok || !p.Equal(dec(t, "123.45")) {
        t.Fatalf("unexpected manual map: %+v", resp.Manual)
    }

    // delete
    rr = httptest.NewRecorder()
    req = httptest.NewRequest("DELETE", "/api/manual?symbol=AAPL", nil)
    handleManual(rr, req, manual)
    if rr.Code != 204 { t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String()) }

    if _, ok, err := manual.Lookup("AAPL"); err != nil || ok {
        t.Fatalf("override survived delete: ok=%v err=%v", ok, err)
    }
}

func TestManual_RejectsBadPrice(t *testing.T) {
    manual := store.NewManual(filepath.Join(t.TempDir(), "manual.json"))

    for _, body := range []string{
        `{"symbol":"AAPL","price":"-1"}`,
        `{"symbol":"AAPL","price":"0"}`,
        `{"symbol":"AAPL","price":"oops"}`,
        `{"symbol":"","price":"10"}`,
    } {
        rr := httptest.NewRecorder()
        req := httptest.NewRequest("PUT", "/api/manual", strings.NewReader(body))
        handleManual(rr, req, manual)
        if rr.Code != 400 { t.Fatalf("body %q: status=%d", body, rr.Code) }
    }
}
