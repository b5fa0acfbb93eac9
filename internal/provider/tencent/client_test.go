package tencent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/httputil"
	"github.com/hzchen/limitboard/pkg/logger"
)

// encodeGBK renders a response body the way the live endpoint does
func encodeGBK(t *testing.T, s string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(s))
	require.NoError(t, err)
	return out
}

// record builds one v_<code>="..." record with 40 tilde fields
func record(code, name, now, prev, volume, turnoverWan string) string {
	parts := make([]string, 40)
	for i := range parts {
		parts[i] = "0"
	}
	parts[0] = "1"
	parts[1] = name
	parts[2] = strings.TrimLeft(code, "shz")
	parts[3] = now
	parts[4] = prev
	parts[6] = volume
	parts[37] = turnoverWan
	return fmt.Sprintf(`v_%s="%s"`, code, strings.Join(parts, "~"))
}

func testClient(t *testing.T, baseURL string, universe []string) *Client {
	t.Helper()

	cfg := &config.Config{
		LogLevel:  "error",
		LogFormat: "json",
		Tencent:   config.TencentConfig{BaseURL: baseURL + "/q"},
		Collector: config.CollectorConfig{
			FetchTimeout: 2 * time.Second,
			MaxRetries:   1,
			RetryBackoff: time.Millisecond,
		},
	}
	log := logger.New(cfg)

	return NewClient(httputil.New(cfg, log), cfg, universe, log)
}

func TestFetchQuotes_ParsesBasket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := strings.Join([]string{
			record("sh000001", "上证指数", "3100.50", "3080.00", "0", "0"),
			record("sh600000", "浦发银行", "11.00", "10.00", "12345", "150"),
			record("sz000001", "平安银行", "10.45", "10.50", "5000", "52"),
		}, ";\n") + ";"
		w.Write(encodeGBK(t, body))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, []string{"sh000001", "sh600000", "sz000001"})

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)

	// The index row is filtered out of the equity universe
	require.Len(t, quotes, 2)

	assert.Equal(t, "SH600000", quotes[0].Code)
	assert.Equal(t, "浦发银行", quotes[0].Name)
	assert.InDelta(t, 10.0, quotes[0].ChangePercent, 1e-9)
	assert.Equal(t, int64(12345), quotes[0].Volume)
	assert.InDelta(t, 1_500_000, quotes[0].Turnover, 1e-9)
	assert.True(t, quotes[0].HasQuote)

	assert.Equal(t, "SZ000001", quotes[1].Code)
	assert.InDelta(t, -0.47619, quotes[1].ChangePercent, 1e-4)
}

func TestFetchQuotes_ShortRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeGBK(t, `v_sh600000="1~浦发银行~600000~11.00";`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, []string{"sh600000"})

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, provider.ErrMalformedPayload)
}

func TestFetchQuotes_NoneMatchBasket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeGBK(t, "v_pv_none_match=1;"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, []string{"sh600000"})

	// An all-unknown basket must fail rather than read as an empty but
	// successful universe
	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, provider.ErrDataInvalid)
}

func TestFetchQuotes_GarbledBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeGBK(t, "<html>rate limited</html>"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, []string{"sh600000"})

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, provider.ErrMalformedPayload)
}

func TestFetchQuotes_Batches(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Codes ride in the path: /q=sh600000,sz000001
		codes := strings.Split(strings.TrimPrefix(r.URL.Path, "/q="), ",")
		rows := make([]string, 0, len(codes))
		for _, code := range codes {
			rows = append(rows, record(code, "某股份", "10.0", "10.0", "1", "1"))
		}
		w.Write(encodeGBK(t, strings.Join(rows, ";")+";"))
	}))
	defer srv.Close()

	universe := make([]string, 0, batchSize+5)
	for i := 0; i < batchSize+5; i++ {
		universe = append(universe, fmt.Sprintf("sh60%04d", i))
	}

	c := testClient(t, srv.URL, universe)

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, batchSize+5)
	assert.Equal(t, 2, requests)
}

func TestFetchIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "sh000001")
		w.Write(encodeGBK(t, record("sh000001", "上证指数", "3100.50", "3080.00", "0", "0")+";"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, nil)

	q, err := c.FetchIndex(context.Background(), "sh000001")
	require.NoError(t, err)
	assert.Equal(t, "上证指数", q.Name)
	assert.InDelta(t, 3100.50, q.Price, 1e-9)
	assert.True(t, q.HasQuote)
}

func TestFetchQuotes_SuspendedHasNoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeGBK(t, record("sh600001", "停牌股份", "0.00", "10.00", "0", "0")+";"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, []string{"sh600001"})

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.False(t, quotes[0].HasQuote)
	assert.Zero(t, quotes[0].ChangePercent)
}

func TestFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "sh600519")
		rec := record("sh600519", "贵州茅台", "1700.00", "1650.00", "30000", "510000")
		// 盘中最高/最低
		parts := strings.Split(rec, "~")
		parts[33], parts[34] = "1720.00", "1640.00"
		w.Write(encodeGBK(t, strings.Join(parts, "~")+";"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, nil)

	q, err := c.FetchQuote(context.Background(), "sh600519")
	require.NoError(t, err)
	assert.Equal(t, "SH600519", q.Code)
	assert.Equal(t, "贵州茅台", q.Name)
	assert.True(t, q.HasQuote)
	assert.InDelta(t, 1700.0, q.Price, 1e-9)
	assert.InDelta(t, 1720.0, q.High, 1e-9)
	assert.InDelta(t, 1640.0, q.Low, 1e-9)
	assert.InDelta(t, 3.0303, q.ChangePercent, 1e-4)
}

func TestFetchQuote_UnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeGBK(t, `v_pv_none_match="1";`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, nil)

	q, err := c.FetchQuote(context.Background(), "sh999999")
	require.NoError(t, err)
	assert.False(t, q.HasQuote, "an unknown code is an empty answer, not an error")
	assert.Empty(t, q.Code)
}

func TestDefaultUniverseUsedWhenEmpty(t *testing.T) {
	c := testClient(t, "http://unused", nil)
	assert.Equal(t, DefaultUniverse, c.universe)
}
