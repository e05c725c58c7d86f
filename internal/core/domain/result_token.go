package domain

import "time"

// ResultSnapshot is the immutable result of a browser-return payment attempt,
// handed to the client once via a ResultToken and never again.
type ResultSnapshot struct {
	TradeNo    string      `json:"trade_no"`
	Status     OrderStatus `json:"status"`
	GatewaySeq string      `json:"gateway_seq,omitempty"`
	Amount     int64       `json:"amount"`
	PaidAt     *time.Time  `json:"paid_at,omitempty"`
	Message    string      `json:"message,omitempty"`
}
