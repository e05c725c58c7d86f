package domain

import "time"

// PeriodPayment records one billing cycle of a subscription. It is uniquely
// keyed by (PeriodTradeNo, SequenceNo); the gateway's recurring charge
// mechanism may redeliver the same notification, and the store must not
// record the same cycle twice.
type PeriodPayment struct {
	PeriodTradeNo string      `json:"period_trade_no"`
	BaseOrderNo   string      `json:"base_order_no"` // the "_0" anchor order
	SequenceNo    int         `json:"sequence_no"`   // 0, 1, 2, ...
	TradeSeq      string      `json:"trade_seq,omitempty"`
	Amount        int64       `json:"amount"`
	Status        OrderStatus `json:"status"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	Remark        string      `json:"remark,omitempty"`
}
