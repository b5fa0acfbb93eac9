package eastmoney

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/httputil"
	"github.com/hzchen/limitboard/pkg/logger"
)

func testClient(t *testing.T, baseURL string, pageSize int) *Client {
	t.Helper()

	cfg := &config.Config{
		LogLevel:  "error",
		LogFormat: "json",
		Eastmoney: config.EastmoneyConfig{
			BaseURL:   baseURL,
			SearchURL: baseURL,
			PageSize:  pageSize,
		},
		Collector: config.CollectorConfig{
			FetchTimeout:    2 * time.Second,
			MaxRetries:      1,
			RetryBackoff:    time.Millisecond,
			PageConcurrency: 2,
			PageDelay:       0,
		},
	}
	log := logger.New(cfg)

	return NewClient(httputil.New(cfg, log), cfg, log)
}

func TestFetchQuotes_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("pn"))
		assert.Contains(t, r.URL.Query().Get("fs"), "m:0+t:6")
		fmt.Fprint(w, `{"rc":0,"data":{"total":3,"diff":[
			{"f12":"600000","f14":"浦发银行","f2":11.0,"f3":0.5,"f5":1000,"f6":5000000,"f18":10.0,"f62":0},
			{"f12":"300750","f14":"宁德时代","f2":"-","f3":"-","f5":"-","f6":"-","f18":"-","f62":"-"},
			{"f12":"688001","f14":"华兴源创","f2":23.98,"f3":19.9,"f5":2000,"f6":9000000,"f18":20.0,"f62":2}
		]}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, "SH600000", quotes[0].Code)
	assert.True(t, quotes[0].HasQuote)
	// Recomputed from price/prevClose, not the wire's f3
	assert.InDelta(t, 10.0, quotes[0].ChangePercent, 1e-9)

	// "-" placeholder row keeps the identity but carries no numbers
	assert.Equal(t, "SZ300750", quotes[1].Code)
	assert.False(t, quotes[1].HasQuote)
	assert.Zero(t, quotes[1].Price)

	assert.Equal(t, 2, quotes[2].LimitStreak)
	assert.Equal(t, int64(2000), quotes[2].Volume)
}

func TestFetchQuotes_Paginated(t *testing.T) {
	pages := map[string]string{
		"1": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600001","f14":"甲","f2":10,"f3":0,"f18":10},
			{"f12":"600002","f14":"乙","f2":10,"f3":0,"f18":10}]}}`,
		"2": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600003","f14":"丙","f2":10,"f3":0,"f18":10},
			{"f12":"600004","f14":"丁","f2":10,"f3":0,"f18":10}]}}`,
		"3": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600005","f14":"戊","f2":10,"f3":0,"f18":10}]}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("pn")]
		require.True(t, ok, "unexpected page %s", r.URL.Query().Get("pn"))
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 5)

	seen := map[string]bool{}
	for _, q := range quotes {
		seen[q.Code] = true
	}
	assert.Len(t, seen, 5)
}

func TestFetchQuotes_NoDelayAfterLastPage(t *testing.T) {
	pages := map[string]string{
		"1": `{"rc":0,"data":{"total":3,"diff":[
			{"f12":"600001","f14":"甲","f2":10,"f3":0,"f18":10},
			{"f12":"600002","f14":"乙","f2":10,"f3":0,"f18":10}]}}`,
		"2": `{"rc":0,"data":{"total":3,"diff":[
			{"f12":"600003","f14":"丙","f2":10,"f3":0,"f18":10}]}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pages[r.URL.Query().Get("pn")])
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	c.pageDelay = time.Hour

	start := time.Now()
	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 3)
	assert.Less(t, time.Since(start), 10*time.Second, "no politeness delay after the final page")
}

func TestFetchQuotes_DelayHonorsCancellation(t *testing.T) {
	pages := map[string]string{
		"1": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600001","f14":"甲","f2":10,"f3":0,"f18":10},
			{"f12":"600002","f14":"乙","f2":10,"f3":0,"f18":10}]}}`,
		"2": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600003","f14":"丙","f2":10,"f3":0,"f18":10},
			{"f12":"600004","f14":"丁","f2":10,"f3":0,"f18":10}]}}`,
		"3": `{"rc":0,"data":{"total":5,"diff":[
			{"f12":"600005","f14":"戊","f2":10,"f3":0,"f18":10}]}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pages[r.URL.Query().Get("pn")])
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	c.pageDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchQuotes(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation must cut the politeness delay short")
}

func TestFetchQuotes_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rc":100,"data":null}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, provider.ErrDataInvalid)
}

func TestFetchQuotes_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>rate limited</html>`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, provider.ErrMalformedPayload)
}

func TestFetchTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fs"), "m:90+t:3")
		fmt.Fprint(w, `{"rc":0,"data":{"total":4,"diff":[
			{"f12":"BK0001","f14":"低涨幅","f2":900.0,"f3":1.1},
			{"f12":"BK0002","f14":"高涨幅","f2":1200.0,"f3":5.4},
			{"f12":"BK0003","f14":"停牌板块","f2":"-","f3":"-"},
			{"f12":"BK0004","f14":"中涨幅","f2":1000.0,"f3":3.2}
		]}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	topics, err := c.FetchTopics(context.Background(), 2)
	require.NoError(t, err)

	// Unquoted rows dropped, sorted best first, truncated to limit
	require.Len(t, topics, 2)
	assert.Equal(t, "高涨幅", topics[0].Name)
	assert.InDelta(t, 5.4, topics[0].ChangePercent, 1e-9)
	assert.Equal(t, "中涨幅", topics[1].Name)
}

func TestSearchSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "茅台", r.URL.Query().Get("input"))
		assert.Equal(t, "14", r.URL.Query().Get("type"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		fmt.Fprint(w, `{"QuotationCodeTable":{"Data":[
			{"Code":"600519","Name":"贵州茅台","SecurityTypeName":"上海"},
			{"Code":"300750","Name":"宁德时代","SecurityTypeName":"深圳"},
			{"Code":"830799","Name":"艾融软件","SecurityTypeName":"北京"},
			{"Code":"","Name":"空行","SecurityTypeName":"上海"}
		]}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	symbols, err := c.SearchSymbols(context.Background(), "茅台", 5)
	require.NoError(t, err)
	require.Len(t, symbols, 3)
	assert.Equal(t, "SH600519", symbols[0].Code)
	assert.Equal(t, "贵州茅台", symbols[0].Name)
	assert.Equal(t, "SZ300750", symbols[1].Code)
	assert.Equal(t, "BJ830799", symbols[2].Code)
}

func TestSearchSymbols_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>blocked</html>`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 10)

	_, err := c.SearchSymbols(context.Background(), "茅台", 5)
	assert.ErrorIs(t, err, provider.ErrMalformedPayload)
}
