package tencent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/httputil"
	"github.com/hzchen/limitboard/pkg/logger"
)

// Codes per request; the endpoint accepts long comma-joined lists but
// degrades past roughly a hundred
const batchSize = 80

// DefaultUniverse is the fallback quote basket: the benchmark indices
// plus a high-turnover cross-section of each board. Tencent has no
// full-universe listing endpoint, so the fallback path samples instead
// of enumerating.
var DefaultUniverse = []string{
	// 指数
	"sh000001", "sz399001", "sz399006", "sh000300",
	// 沪市主板
	"sh600519", "sh601318", "sh600036", "sh601857", "sh601288",
	"sh600030", "sh600016", "sh600000", "sh600276", "sh600111",
	// 深市
	"sz000001", "sz000002", "sz000063", "sz000069", "sz000100",
	"sz002594", "sz002475", "sz002410", "sz002371", "sz002456",
	// 科创板
	"sh688111", "sh688981", "sh688169", "sh688008", "sh688185",
}

// Client fetches quotes from the Tencent qt.gtimg.cn endpoint. It is
// the fallback quote source and the trading-day probe: the endpoint is
// code-addressed only, so FetchQuotes covers the configured basket
// rather than the full universe.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	universe   []string
}

// NewClient creates a new Tencent client over the given code basket
func NewClient(httpClient *httputil.Client, cfg *config.Config, universe []string, log *logger.Logger) *Client {
	if len(universe) == 0 {
		universe = DefaultUniverse
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", "tencent"),
		baseURL:    cfg.Tencent.BaseURL,
		universe:   universe,
	}
}

// Name implements provider.QuoteSource
func (c *Client) Name() string {
	return "tencent"
}

// FetchQuotes fetches the configured basket in batches. Index codes in
// the basket are excluded from the result so the degraded universe
// still only contains equities.
func (c *Client) FetchQuotes(ctx context.Context) ([]quote.Quote, error) {
	var quotes []quote.Quote

	for start := 0; start < len(c.universe); start += batchSize {
		end := start + batchSize
		if end > len(c.universe) {
			end = len(c.universe)
		}

		batch, err := c.fetchCodes(ctx, c.universe[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", start/batchSize+1, err)
		}
		for _, q := range batch {
			if isIndexCode(q.Code) {
				continue
			}
			quotes = append(quotes, q)
		}
	}

	// A basket answered entirely with none_match would otherwise read as
	// an empty but successful universe and persist zeroed stats
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no instruments matched the basket", provider.ErrDataInvalid)
	}

	c.logger.WithField("count", len(quotes)).Debug("Fetched fallback basket")
	return quotes, nil
}

// FetchQuote fetches a single instrument by code. An unknown code is
// not an error: the endpoint answers none_match and the zero Quote
// (HasQuote false) is returned.
func (c *Client) FetchQuote(ctx context.Context, code string) (quote.Quote, error) {
	quotes, err := c.fetchCodes(ctx, []string{code})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(quotes) == 0 {
		return quote.Quote{}, nil
	}
	return quotes[0], nil
}

// FetchIndex fetches a single benchmark index quote
func (c *Client) FetchIndex(ctx context.Context, code string) (quote.Quote, error) {
	quotes, err := c.fetchCodes(ctx, []string{code})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(quotes) == 0 {
		return quote.Quote{}, fmt.Errorf("%w: index %s missing from response", provider.ErrDataInvalid, code)
	}
	return quotes[0], nil
}

// FetchIndices fetches several benchmark indices in one request
func (c *Client) FetchIndices(ctx context.Context, codes []string) ([]quote.Quote, error) {
	return c.fetchCodes(ctx, codes)
}

// fetchCodes fetches one comma-joined batch
func (c *Client) fetchCodes(ctx context.Context, codes []string) ([]quote.Quote, error) {
	lowered := make([]string, len(codes))
	for i, code := range codes {
		lowered[i] = strings.ToLower(code)
	}

	body, err := c.httpClient.Get(ctx, fmt.Sprintf("%s=%s", c.baseURL, strings.Join(lowered, ",")))
	if err != nil {
		return nil, err
	}

	return parseBody(body)
}

// isIndexCode reports whether a normalized code names an index rather
// than an equity (sh000xxx / sz399xxx)
func isIndexCode(code string) bool {
	return strings.HasPrefix(code, "SH000") || strings.HasPrefix(code, "SZ399")
}
