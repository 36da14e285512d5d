package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"pricefeed/internal/fetch"
	"pricefeed/internal/quote"
)

// ErrNoData reports that an otherwise successful response carried no entry
// for the requested symbol.
var ErrNoData = fmt.Errorf("yahoo: no data for symbol")

// FetchBatch retrieves quotes for all symbols in a single request.
// Symbols the upstream had no data for are absent from the returned map.
func (c *Client) FetchBatch(ctx context.Context, symbols []string) (map[string]quote.Record, error) {
	if len(symbols) == 0 {
		return map[string]quote.Record{}, nil
	}
	entries, err := c.getQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make(map[string]quote.Record, len(entries))
	for _, e := range entries {
		sym := quote.Normalize(e.Symbol)
		if sym == "" {
			continue
		}
		out[sym] = e.record(sym, now)
	}
	return out, nil
}

// FetchOne retrieves a quote for a single symbol with one request.
// It returns ErrNoData when the response carried nothing for the symbol.
func (c *Client) FetchOne(ctx context.Context, symbol string) (quote.Record, error) {
	entries, err := c.getQuotes(ctx, []string{symbol})
	if err != nil {
		return quote.Record{}, err
	}
	now := time.Now().UTC()
	want := quote.Normalize(symbol)
	for _, e := range entries {
		if quote.Normalize(e.Symbol) == want {
			return e.record(want, now), nil
		}
	}
	return quote.Record{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
}

func (c *Client) getQuotes(ctx context.Context, symbols []string) ([]resultEntry, error) {
	query := c.cloneQuery()
	query.Set("symbols", strings.Join(symbols, ","))

	url := fmt.Sprintf("%s/v7/finance/quote?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("%w: GET %s -> %d: %s", fetch.ErrUpstreamUnavailable, url, res.StatusCode, string(b))
	}

	var api apiResponse
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&api); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", fetch.ErrUpstreamUnavailable, err)
	}
	if api.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("%w: upstream error: %s", fetch.ErrUpstreamUnavailable, api.QuoteResponse.Error.Description)
	}
	return api.QuoteResponse.Result, nil
}

func (c *Client) cloneQuery() url.Values {
	out := make(url.Values, len(c.query)+1)
	for k, vs := range c.query {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

type apiResponse struct {
	QuoteResponse struct {
		Result []resultEntry `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type resultEntry struct {
	Symbol            string       `json:"symbol"`
	MarketState       string       `json:"marketState"`
	RegularPrice      *json.Number `json:"regularMarketPrice"`
	PrePrice          *json.Number `json:"preMarketPrice"`
	PostPrice         *json.Number `json:"postMarketPrice"`
	RegularMarketTime int64        `json:"regularMarketTime"`
}

func (e resultEntry) record(symbol string, now time.Time) quote.Record {
	return quote.Record{
		Symbol:      symbol,
		Regular:     numToDecimal(e.RegularPrice),
		Pre:         numToDecimal(e.PrePrice),
		Post:        numToDecimal(e.PostPrice),
		MarketState: e.MarketState,
		FetchedAt:   parseEpochMaybeMillis(e.RegularMarketTime, now),
	}
}

// numToDecimal converts an optional JSON number. Absent, unparsable, and
// non-positive prices all map to nil: upstream uses 0 for "no trade".
func numToDecimal(n *json.Number) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.Sign() <= 0 {
		return nil
	}
	return &d
}

func parseEpochMaybeMillis(v int64, fallback time.Time) time.Time {
	if v <= 0 {
		return fallback
	}
	if v > 1_000_000_000_000 { // ms
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
