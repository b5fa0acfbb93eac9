package provider

import (
	"context"
	"errors"

	"github.com/hzchen/limitboard/internal/quote"
)

// Parse-level failure taxonomy. Transport-level errors (Timeout,
// Network, HTTPError) come from pkg/httputil. Neither of these is
// retried against the same provider: a structurally broken response
// will not improve on retry, but it does trigger provider fallback.
var (
	// ErrDataInvalid is a well-formed response carrying an API-level
	// error (e.g. HTTP 200 with rc != 0)
	ErrDataInvalid = errors.New("provider returned invalid data")

	// ErrMalformedPayload is a response that cannot be parsed at all
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// Symbol is one search-suggest hit: code and name only, no live quote
type Symbol struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Topic is one concept-sector ranking entry as fetched upstream
type Topic struct {
	Code          string
	Name          string
	ChangePercent float64
	ClosePrice    float64
}

// QuoteSource produces the quote universe for one provider
type QuoteSource interface {
	Name() string
	FetchQuotes(ctx context.Context) ([]quote.Quote, error)
}

// TopicSource produces concept-sector rankings
type TopicSource interface {
	FetchTopics(ctx context.Context, limit int) ([]Topic, error)
}

// IndexSource produces benchmark index quotes. Also the trading-day
// probe: a live index with a real price means the market is open.
type IndexSource interface {
	FetchIndex(ctx context.Context, code string) (quote.Quote, error)
	FetchIndices(ctx context.Context, codes []string) ([]quote.Quote, error)
}
