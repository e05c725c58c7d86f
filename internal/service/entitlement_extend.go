package service

import (
	"time"

	"payuni-gateway/internal/core/domain"
)

// extendExpiry advances a subscription entitlement's expiry by exactly one
// billing period from the later of now and the current expiry. It uses fixed,
// conservative day-count constants rather than calendar-month arithmetic: the
// correct rule (honoring periodDate/periodTimes termination) depends on the
// gateway's own billing contract, which this adapter does not have visibility
// into, so it errs long instead of guessing.
func extendExpiry(now time.Time, currentExpiry *time.Time, periodType domain.PeriodType) time.Time {
	base := now
	if currentExpiry != nil && currentExpiry.After(now) {
		base = *currentExpiry
	}

	switch periodType {
	case domain.PeriodTypeWeek:
		return base.AddDate(0, 0, 7)
	case domain.PeriodTypeYear:
		return base.AddDate(0, 0, 366)
	default: // month
		return base.AddDate(0, 0, 32)
	}
}
