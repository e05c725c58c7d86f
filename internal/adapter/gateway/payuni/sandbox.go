package payuni

import (
	"context"
	"sync"

	"payuni-gateway/internal/core/ports"
)

// SandboxAdapter is an in-memory stand-in for Adapter implementing the same
// ports.GatewayAdapter interface, so integration tests can drive S1-S8
// without a live PAYUNi sandbox. Tests seed trade outcomes via SetTradeInfo
// before invoking the handler under test.
type SandboxAdapter struct {
	mu     sync.Mutex
	seal   ports.SealCodec
	trades map[string]*ports.TradeInfo
	periods map[string]*ports.PeriodInfo
}

// NewSandboxAdapter builds an in-memory gateway double.
func NewSandboxAdapter(seal ports.SealCodec) *SandboxAdapter {
	return &SandboxAdapter{
		seal:    seal,
		trades:  make(map[string]*ports.TradeInfo),
		periods: make(map[string]*ports.PeriodInfo),
	}
}

// SetTradeInfo seeds the result QueryTrade/ParseInbound will observe for a
// given trade number.
func (s *SandboxAdapter) SetTradeInfo(info *ports.TradeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[info.TradeNo] = info
}

// SetPeriodInfo seeds the result QueryPeriod will observe.
func (s *SandboxAdapter) SetPeriodInfo(info *ports.PeriodInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[info.PeriodTradeNo] = info
}

func (s *SandboxAdapter) BuildOneShot(ctx context.Context, req ports.OneShotRequest) (string, string, error) {
	envelope, err := s.seal.Seal("sandbox-form")
	if err != nil {
		return "", "", err
	}
	return envelope, req.TradeNo, nil
}

func (s *SandboxAdapter) BuildSubscription(ctx context.Context, req ports.SubscriptionRequest) (string, string, error) {
	envelope, err := s.seal.Seal("sandbox-form")
	if err != nil {
		return "", "", err
	}
	return envelope, req.TradeNo, nil
}

func (s *SandboxAdapter) VerifyInbound(ctx context.Context, envelope string, hash string) bool {
	expected := s.seal.Hash(envelope)
	return s.seal.EqualsCT([]byte(expected), []byte(hash))
}

func (s *SandboxAdapter) ParseInbound(ctx context.Context, envelope string) (*ports.TradeInfo, error) {
	plaintext, err := s.seal.Open(envelope)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.trades[plaintext]; ok {
		return info, nil
	}
	return &ports.TradeInfo{TradeNo: plaintext, StatusCode: 1}, nil
}

func (s *SandboxAdapter) QueryTrade(ctx context.Context, tradeNo string) (*ports.TradeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.trades[tradeNo]; ok {
		return info, nil
	}
	return &ports.TradeInfo{TradeNo: tradeNo, StatusCode: 1}, nil
}

func (s *SandboxAdapter) QueryPeriod(ctx context.Context, periodTradeNo string) (*ports.PeriodInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.periods[periodTradeNo]; ok {
		return info, nil
	}
	return &ports.PeriodInfo{PeriodTradeNo: periodTradeNo, Status: "active"}, nil
}

func (s *SandboxAdapter) ModifyPeriodStatus(ctx context.Context, periodTradeNo string, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.periods[periodTradeNo]; ok {
		info.Status = action
		return nil
	}
	s.periods[periodTradeNo] = &ports.PeriodInfo{PeriodTradeNo: periodTradeNo, Status: action}
	return nil
}
