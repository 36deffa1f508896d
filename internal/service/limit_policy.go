package service

import (
	"fmt"
	"time"

	"stokvel-ledger/config"
	"stokvel-ledger/pkg/apperror"
	"stokvel-ledger/pkg/money"
)

// LimitPolicy evaluates prospective transactions against absolute bounds and
// rolling calendar-day caps. It is immutable after construction; thresholds
// come from configuration, never ambient globals.
type LimitPolicy struct {
	cfg config.LimitsConfig
	loc *time.Location
}

// NewLimitPolicy builds a policy from configuration.
func NewLimitPolicy(cfg config.LimitsConfig) *LimitPolicy {
	return &LimitPolicy{cfg: cfg, loc: cfg.Location()}
}

// DayWindow returns the [from, to) bounds of the calendar day containing now
// in the policy timezone. Strict day bucketing: 23:59:59 and 00:00:01 the
// next instant land in different windows.
func (p *LimitPolicy) DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(p.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc)
	return from, from.AddDate(0, 0, 1)
}

// CheckDeposit validates absolute bounds and the daily deposit cap.
// todayCents is the sum of the user's completed deposits in today's window,
// read inside the same database transaction as the prospective mutation.
func (p *LimitPolicy) CheckDeposit(amount money.Money, todayCents int64) error {
	if err := p.checkBounds(amount); err != nil {
		return err
	}
	if todayCents+amount.Cents > p.cfg.DailyDepositCents {
		headroom := p.cfg.DailyDepositCents - todayCents
		if headroom < 0 {
			headroom = 0
		}
		return apperror.ErrLimitExceeded(fmt.Sprintf(
			"Daily deposit limit exceeded. You can deposit R%s more today.",
			money.FromCents(headroom, amount.Currency).String(),
		))
	}
	return nil
}

// CheckTransfer validates absolute bounds and the daily outgoing-transfer
// cap. todayOutCents is the magnitude of today's completed outgoing
// transfers.
func (p *LimitPolicy) CheckTransfer(amount money.Money, todayOutCents int64) error {
	if err := p.checkBounds(amount); err != nil {
		return err
	}
	if todayOutCents+amount.Cents > p.cfg.DailyTransferCents {
		headroom := p.cfg.DailyTransferCents - todayOutCents
		if headroom < 0 {
			headroom = 0
		}
		return apperror.ErrLimitExceeded(fmt.Sprintf(
			"Daily transfer limit exceeded. You can transfer R%s more today.",
			money.FromCents(headroom, amount.Currency).String(),
		))
	}
	return nil
}

// CheckWithdrawal validates the withdrawal-specific bounds. These are
// independent of the generic transaction bounds and there is no daily cap.
func (p *LimitPolicy) CheckWithdrawal(amount money.Money) error {
	if amount.Cents < p.cfg.MinWithdrawalCents {
		return apperror.ErrAmountOutOfRange(fmt.Sprintf(
			"Minimum withdrawal amount is R%s",
			money.FromCents(p.cfg.MinWithdrawalCents, amount.Currency).String(),
		))
	}
	if amount.Cents > p.cfg.MaxWithdrawalCents {
		return apperror.ErrAmountOutOfRange(fmt.Sprintf(
			"Maximum withdrawal amount is R%s",
			money.FromCents(p.cfg.MaxWithdrawalCents, amount.Currency).String(),
		))
	}
	return nil
}

func (p *LimitPolicy) checkBounds(amount money.Money) error {
	if amount.Cents < p.cfg.MinTransactionCents {
		return apperror.ErrAmountOutOfRange(fmt.Sprintf(
			"Minimum transaction amount is R%s",
			money.FromCents(p.cfg.MinTransactionCents, amount.Currency).String(),
		))
	}
	if amount.Cents > p.cfg.MaxTransactionCents {
		return apperror.ErrAmountOutOfRange(fmt.Sprintf(
			"Maximum transaction amount is R%s",
			money.FromCents(p.cfg.MaxTransactionCents, amount.Currency).String(),
		))
	}
	return nil
}
