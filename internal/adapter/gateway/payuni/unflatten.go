package payuni

import (
	"net/url"
	"regexp"
	"strconv"
	"time"

	"payuni-gateway/internal/core/ports"
)

// flattenedKey matches the gateway's "Result[0][Field]" response shape.
var flattenedKey = regexp.MustCompile(`^Result\[0\]\[(\w+)\]$`)

// flattenedField extracts field names from a flattened result set into a
// plain map, so nothing downstream indexes the gateway's wire shape
// directly.
func flattenedField(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) == 0 {
			continue
		}
		if m := flattenedKey.FindStringSubmatch(k); m != nil {
			out[m[1]] = v[0]
			continue
		}
		out[k] = v[0]
	}
	return out
}

func tradeInfoFromValues(values url.Values) *ports.TradeInfo {
	f := flattenedField(values)
	info := &ports.TradeInfo{
		TradeNo:       f["TradeNo"],
		GatewaySeq:    f["TradeSha"],
		PeriodTradeNo: f["PeriodTradeNo"],
	}
	info.StatusCode, _ = strconv.Atoi(f["Status"])
	info.PaymentType, _ = strconv.Atoi(f["PaymentType"])
	info.Amount, _ = strconv.ParseInt(f["Amt"], 10, 64)
	info.SequenceNo, _ = strconv.Atoi(f["Times"])
	return info
}

func unflattenTradeResult(values url.Values) (*ports.TradeInfo, error) {
	return tradeInfoFromValues(values), nil
}

func unflattenPeriodResult(values url.Values) (*ports.PeriodInfo, error) {
	f := flattenedField(values)
	info := &ports.PeriodInfo{
		PeriodTradeNo: f["PeriodTradeNo"],
		Status:        f["Status"],
	}
	if ts := f["NextChargeDate"]; ts != "" {
		if t, err := time.Parse("2006-01-02", ts); err == nil {
			info.NextChargeAt = &t
		}
	}
	return info, nil
}
