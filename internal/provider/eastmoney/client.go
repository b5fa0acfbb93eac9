package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/httputil"
	"github.com/hzchen/limitboard/pkg/logger"
)

const (
	// fs filters select the A-share universe (沪深主板/创业板/科创板)
	// and the concept-board (概念板块) list respectively
	fsAShares       = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"
	fsConceptBoards = "m:90+t:3"

	stockFields = "f12,f14,f2,f3,f5,f6,f18,f62"
	topicFields = "f12,f14,f2,f3"

	// Public token the web frontend ships with
	utToken = "bd1d9ddb04089700cf9c27f6f7426281"
)

// Client fetches the quote universe and concept rankings from the
// Eastmoney push2 API
// ⭐ SSOT: 东方财富接口只在这个客户端调用
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	searchURL  string

	pageSize        int
	pageConcurrency int
	pageDelay       time.Duration
}

// NewClient creates a new Eastmoney client
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient:      httpClient,
		logger:          log.WithField("provider", "eastmoney"),
		baseURL:         cfg.Eastmoney.BaseURL,
		searchURL:       cfg.Eastmoney.SearchURL,
		pageSize:        cfg.Eastmoney.PageSize,
		pageConcurrency: cfg.Collector.PageConcurrency,
		pageDelay:       cfg.Collector.PageDelay,
	}
}

// Name implements provider.QuoteSource
func (c *Client) Name() string {
	return "eastmoney"
}

// FetchQuotes fetches the full A-share universe, paginating when the
// universe exceeds one page. Pages beyond the first are fetched with a
// bounded concurrency window and a politeness delay between launches.
func (c *Client) FetchQuotes(ctx context.Context) ([]quote.Quote, error) {
	first, err := c.fetchStockPage(ctx, 1)
	if err != nil {
		return nil, err
	}

	quotes := make([]quote.Quote, 0, first.Data.Total)
	for _, row := range first.Data.Diff {
		quotes = append(quotes, toQuote(row))
	}

	pages := (first.Data.Total + c.pageSize - 1) / c.pageSize
	if pages <= 1 {
		return quotes, nil
	}

	// Remaining pages, bounded window
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, c.pageConcurrency)

	for page := 2; page <= pages; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := c.fetchStockPage(ctx, page)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("page %d: %w", page, err)
				}
				return
			}
			for _, row := range resp.Data.Diff {
				quotes = append(quotes, toQuote(row))
			}
		}(page)

		// 控制请求频率，避免被限流；最后一页之后不再等待
		if page < pages {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	c.logger.WithFields(map[string]interface{}{
		"total": first.Data.Total,
		"got":   len(quotes),
		"pages": pages,
	}).Debug("Fetched quote universe")

	return quotes, nil
}

// FetchTopics fetches the concept-board gainers list, best first
func (c *Client) FetchTopics(ctx context.Context, limit int) ([]provider.Topic, error) {
	params := c.listParams(1, limit, fsConceptBoards, topicFields)
	body, err := c.httpClient.Get(ctx, fmt.Sprintf("%s/clist/get?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp listResponse[topicRow]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}
	if resp.RC != 0 || resp.Data == nil {
		return nil, fmt.Errorf("%w: rc=%d", provider.ErrDataInvalid, resp.RC)
	}

	topics := make([]provider.Topic, 0, len(resp.Data.Diff))
	for _, row := range resp.Data.Diff {
		if row.Code == "" || !row.ChangePct.Valid {
			continue
		}
		topics = append(topics, provider.Topic{
			Code:          row.Code,
			Name:          row.Name,
			ChangePercent: row.ChangePct.Value,
			ClosePrice:    row.Price.Value,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		return topics[i].ChangePercent > topics[j].ChangePercent
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}

	return topics, nil
}

// SearchSymbols queries the symbol-suggest endpoint by code fragment
// or name. Hits carry no live prices.
func (c *Client) SearchSymbols(ctx context.Context, keyword string, count int) ([]provider.Symbol, error) {
	if count < 1 {
		count = 5
	}

	params := url.Values{
		"input": {keyword},
		"type":  {"14"},
		"count": {strconv.Itoa(count)},
	}
	body, err := c.httpClient.Get(ctx, fmt.Sprintf("%s/suggest/get?%s", c.searchURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp suggestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}

	symbols := make([]provider.Symbol, 0, len(resp.QuotationCodeTable.Data))
	for _, row := range resp.QuotationCodeTable.Data {
		if row.Code == "" {
			continue
		}
		symbols = append(symbols, provider.Symbol{
			Code: qualifyByExchange(row),
			Name: row.Name,
		})
	}
	return symbols, nil
}

// qualifyByExchange maps the suggest endpoint's exchange label onto the
// code prefix, falling back to range-based mapping for labels it does
// not know
func qualifyByExchange(row suggestRow) string {
	switch row.SecurityTypeName {
	case "上海":
		return "SH" + row.Code
	case "深圳":
		return "SZ" + row.Code
	case "北京":
		return "BJ" + row.Code
	default:
		return quote.NormalizeCode(row.Code)
	}
}

// fetchStockPage fetches one page of the universe listing
func (c *Client) fetchStockPage(ctx context.Context, page int) (*listResponse[stockRow], error) {
	params := c.listParams(page, c.pageSize, fsAShares, stockFields)
	body, err := c.httpClient.Get(ctx, fmt.Sprintf("%s/clist/get?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp listResponse[stockRow]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}
	if resp.RC != 0 || resp.Data == nil {
		return nil, fmt.Errorf("%w: rc=%d", provider.ErrDataInvalid, resp.RC)
	}

	return &resp, nil
}

// listParams builds the common clist query
func (c *Client) listParams(page, size int, fs, fields string) url.Values {
	return url.Values{
		"pn":     {strconv.Itoa(page)},
		"pz":     {strconv.Itoa(size)},
		"po":     {"1"},
		"np":     {"1"},
		"ut":     {utToken},
		"fltt":   {"2"},
		"invt":   {"2"},
		"fid":    {"f3"},
		"fs":     {fs},
		"fields": {fields},
	}
}

// toQuote normalizes a wire row into the internal quote model
func toQuote(row stockRow) quote.Quote {
	q := quote.Quote{
		Code:     quote.NormalizeCode(row.Code),
		Name:     row.Name,
		HasQuote: row.Price.Valid && row.Price.Value > 0,
	}
	if !q.HasQuote {
		// Suspended or unquoted: keep the identity, drop the numbers
		return q
	}

	q.Price = row.Price.Value
	q.PrevClose = row.PrevClose.Value
	q.Volume = int64(row.Volume.Value)
	q.Turnover = row.Turnover.Value
	q.LimitStreak = int(row.LimitDays.Value)

	// Never trust the wire's own percent field when the inputs to
	// recompute it are present
	if row.PrevClose.Valid && row.PrevClose.Value > 0 {
		q.ChangePercent = quote.ChangePercentOf(q.Price, q.PrevClose)
	} else {
		q.ChangePercent = row.ChangePct.Value
	}

	return q
}
