// Package model defines the core domain types shared across the lottery engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lottery statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Lottery represents one betting cycle: a numbered outcome space, the risk
// parameters fixed at creation, and the winning numbers once drawn.
// Lotteries are never deleted; history is retained for claims.
type Lottery struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Status              string    `json:"status" db:"status"` // "open" or "closed"
	TotalNumbers        int       `json:"total_numbers" db:"total_numbers"`
	MaxRewardMultiplier int64     `json:"max_reward_multiplier" db:"max_reward_multiplier"`
	MaxSlippagePercent  int64     `json:"max_slippage_percent" db:"max_slippage_percent"`
	TotalWinningNumbers int       `json:"total_winning_numbers" db:"total_winning_numbers"`
	FeePercent          int64     `json:"fee_percent" db:"fee_percent"`
	WinningNumbers      []int     `json:"winning_numbers" db:"winning_numbers"` // empty until drawn, order preserved
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// Drawn reports whether winning numbers have been recorded.
func (l *Lottery) Drawn() bool {
	return len(l.WinningNumbers) > 0
}

// Purchase is an immutable record of one wager entry on one number.
// The reward multiplier is locked in from the aggregates visible when the
// entry was recorded; settlement replays these records, never recomputes.
type Purchase struct {
	ID         string          `json:"id" db:"id"`
	LotteryID  string          `json:"lottery_id" db:"lottery_id"`
	Gambler    string          `json:"gambler" db:"gambler"`
	Number     int             `json:"number" db:"number"`
	Amount     decimal.Decimal `json:"amount" db:"amount"` // reward-token amount, > 0
	Multiplier int64           `json:"multiplier" db:"multiplier"`
	Claimed    bool            `json:"claimed" db:"claimed"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
}

// BetTotals is the per-lottery aggregate bet state consumed by the risk
// engine. Maintained incrementally on every purchase, never rebuilt by scan.
type BetTotals struct {
	ByNumber map[int]decimal.Decimal `json:"by_number"`
	Overall  decimal.Decimal         `json:"overall"`
}

// On returns the accumulated bet amount on a number (zero if none).
func (t BetTotals) On(number int) decimal.Decimal {
	if t.ByNumber == nil {
		return decimal.Zero
	}
	return t.ByNumber[number]
}

// StakePosition is a banker's principal contribution backing one lottery's
// payouts, in stable-token terms. Settlement scales every position in the
// pool by the same gain/loss ratio.
type StakePosition struct {
	LotteryID string          `json:"lottery_id" db:"lottery_id"`
	Banker    string          `json:"banker" db:"banker"`
	Principal decimal.Decimal `json:"principal" db:"principal"`
}
