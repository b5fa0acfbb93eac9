package tencent

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
)

// Tilde-separated positional fields of one qt.gtimg.cn record:
//
//	1 名称  2 代码  3 当前价  4 昨收  5 今开  6 成交量(手)
//	33 最高  34 最低  37 成交额(万元)
//
// A record with fewer than 32 fields is structurally broken.
const minRecordFields = 32

// decodeGBK converts the GBK response body to UTF-8
func decodeGBK(body []byte) ([]byte, error) {
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: gbk decode: %v", provider.ErrMalformedPayload, err)
	}
	return out, nil
}

// parseBody splits a response into per-instrument quotes. Records look
// like v_sh600000="1~浦发银行~600000~..." separated by semicolons;
// records for unknown codes come back as v_pv_none_match and are
// skipped. A none_match-only body is a valid empty answer, not a
// malformed one; callers decide whether empty is acceptable.
func parseBody(body []byte) ([]quote.Quote, error) {
	text, err := decodeGBK(body)
	if err != nil {
		return nil, err
	}

	var quotes []quote.Quote
	noneMatched := false
	for _, row := range strings.Split(string(text), ";") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		if strings.Contains(row, "none_match") {
			noneMatched = true
			continue
		}

		q, err := parseRecord(row)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 && !noneMatched {
		return nil, fmt.Errorf("%w: no records in response", provider.ErrMalformedPayload)
	}

	return quotes, nil
}

// parseRecord parses a single v_<code>="..." record
func parseRecord(row string) (quote.Quote, error) {
	lhs, rhs, ok := strings.Cut(row, "=")
	if !ok {
		return quote.Quote{}, fmt.Errorf("%w: record %q", provider.ErrMalformedPayload, truncate(row))
	}

	code := strings.TrimPrefix(strings.TrimSpace(lhs), "v_")
	payload := strings.Trim(strings.TrimSpace(rhs), `"`)

	parts := strings.Split(payload, "~")
	if len(parts) < minRecordFields {
		return quote.Quote{}, fmt.Errorf("%w: record for %s has %d fields", provider.ErrMalformedPayload, code, len(parts))
	}

	price := parseField(parts, 3)
	prevClose := parseField(parts, 4)

	q := quote.Quote{
		Code:      quote.NormalizeCode(code),
		Name:      parts[1],
		Price:     price,
		PrevClose: prevClose,
		Volume:    int64(parseField(parts, 6)),
		HasQuote:  price > 0,
	}
	if q.HasQuote {
		q.ChangePercent = quote.ChangePercentOf(price, prevClose)
	}
	if len(parts) > 34 {
		q.High = parseField(parts, 33)
		q.Low = parseField(parts, 34)
	}
	// 成交额字段以万元计
	if len(parts) > 37 {
		q.Turnover = parseField(parts, 37) * 10_000
	}

	return q, nil
}

func parseField(parts []string, i int) float64 {
	v, err := strconv.ParseFloat(parts[i], 64)
	if err != nil {
		return 0
	}
	return v
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
