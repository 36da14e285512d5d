package fetch

import (
    "context"
    "errors"

    "pricefeed/internal/quote"
)

// ErrUpstreamUnavailable reports a transport-level failure talking to the
// quote upstream (connection refused, non-2xx, undecodable body). A symbol
// simply missing from an otherwise good response is not this error; it is
// an absent map entry.
var ErrUpstreamUnavailable = errors.New("fetch: upstream unavailable")

// Batch issues exactly one outbound request for the whole symbol set.
// Partial results are legal: the returned map may lack entries for symbols
// the upstream had no data for.
//
//go:generate mockgen -package=resolve_test -destination=../resolve/mock_fetch_test.go -source=fetch.go Batch,Single
type Batch interface {
    FetchBatch(ctx context.Context, symbols []string) (map[string]quote.Record, error)
}

// Single issues one outbound request per symbol. It is the degradation path
// after batch failure, never the primary path.
type Single interface {
    FetchOne(ctx context.Context, symbol string) (quote.Record, error)
}
