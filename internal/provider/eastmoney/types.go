package eastmoney

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Eastmoney addresses every field by a numeric code rather than a name.
// The struct tags below are the single fixed field-code map for the
// clist response kind; a layout change upstream fails here and nowhere
// else.
//
//	f12 代码  f14 名称  f2 最新价  f3 涨跌幅  f5 成交量(手)
//	f6 成交额  f18 昨收  f62 连板天数
type stockRow struct {
	Code      string   `json:"f12"`
	Name      string   `json:"f14"`
	Price     emNumber `json:"f2"`
	ChangePct emNumber `json:"f3"`
	Volume    emNumber `json:"f5"`
	Turnover  emNumber `json:"f6"`
	PrevClose emNumber `json:"f18"`
	LimitDays emNumber `json:"f62"`
}

// topicRow is the field-code map for the concept-board response kind
type topicRow struct {
	Code      string   `json:"f12"`
	Name      string   `json:"f14"`
	Price     emNumber `json:"f2"`
	ChangePct emNumber `json:"f3"`
}

// suggestResponse is the symbol-suggest envelope. Unlike clist, this
// endpoint names its fields.
type suggestResponse struct {
	QuotationCodeTable struct {
		Data []suggestRow `json:"Data"`
	} `json:"QuotationCodeTable"`
}

type suggestRow struct {
	Code             string `json:"Code"`
	Name             string `json:"Name"`
	SecurityTypeName string `json:"SecurityTypeName"`
}

// listResponse is the common clist envelope
type listResponse[T any] struct {
	RC   int `json:"rc"`
	Data *struct {
		Total int `json:"total"`
		Diff  []T `json:"diff"`
	} `json:"data"`
}

// emNumber is a numeric field that the wire reports as "-" for
// suspended or unquoted instruments. Valid distinguishes that case
// from a true zero so a halted stock is never mistaken for a 0.00
// price.
type emNumber struct {
	Value float64
	Valid bool
}

func (n *emNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"-"`)) {
		*n = emNumber{}
		return nil
	}

	// Occasionally numbers arrive quoted
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = emNumber{}
			return nil
		}
		*n = emNumber{Value: v, Valid: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = emNumber{Value: v, Valid: true}
	return nil
}
