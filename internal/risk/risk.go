// Package risk implements the dynamic reward-multiplier pricing model for
// the lottery pool.
//
// The pool's staked stable collateral is divided evenly across the outcome
// number space as a per-number baseline. A number holding fewer bets than the
// running average is granted extra headroom; a number holding more is
// squeezed. The same linear adjustment drives three quantities:
//   - the remaining pool amount a number may still pay out against,
//   - the integer reward multiplier applied to new wagers on that number,
//   - the maximum additional bet the pool will accept on that number.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Division truncates at 18 decimal places and multipliers truncate to whole
// integers, matching the pool's on-ledger fixed-point accounting. Inputs are
// stable-denominated; reward-token conversion happens at the caller through
// the price oracle.
package risk

import (
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places carried by monetary amounts.
var AmountScale int32 = 18

// quo returns a/b truncated at AmountScale decimal places. Zero divisor
// yields zero (degenerate pools price everything at nothing).
func quo(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, _ := a.QuoRem(b, AmountScale)
	return q
}

// RemainingPoolAmount computes how much stable-value collateral is still
// available to back payouts on one number.
//
//	baseline  = staked / totalNumbers
//	average   = totalBet / totalNumbers
//	remaining = baseline + average − betOnNumber, floored at 0
//
// An under-bet number (bet below average) gets a boosted allowance, an
// over-bet number a reduced one, and a number exactly at the average keeps
// the unadjusted baseline.
func RemainingPoolAmount(staked, betOnNumber, totalBet decimal.Decimal, totalNumbers int) decimal.Decimal {
	if totalNumbers <= 0 || staked.Sign() <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(totalNumbers))
	baseline := quo(staked, n)
	average := quo(totalBet, n)

	remaining := baseline.Add(average).Sub(betOnNumber)
	if remaining.Sign() < 0 {
		return decimal.Zero
	}
	return remaining
}

// RewardMultiplier computes the integer payout multiplier currently applied
// to a new wager on one number:
//
//	multiplier = trunc(maxMultiplier × remaining / baseline)
//
// The result is never negative. It is deliberately NOT clamped to
// maxMultiplier: a far under-bet number prices above the maximum, which is
// how the pool steers wagers toward empty numbers.
func RewardMultiplier(staked, betOnNumber, totalBet decimal.Decimal, totalNumbers int, maxMultiplier int64) int64 {
	if totalNumbers <= 0 || staked.Sign() <= 0 || maxMultiplier <= 0 {
		return 0
	}
	n := decimal.NewFromInt(int64(totalNumbers))
	baseline := quo(staked, n)
	if baseline.IsZero() {
		return 0
	}
	remaining := RemainingPoolAmount(staked, betOnNumber, totalBet, totalNumbers)

	scaled := remaining.Mul(decimal.NewFromInt(maxMultiplier))
	mult, _ := scaled.QuoRem(baseline, 0)
	return mult.IntPart()
}

// MaxAllowBetAmount computes the largest additional bet the pool accepts on
// one number: the slippage-tolerance share of the number's remaining pool
// amount.
//
//	maxAllow = remaining × slippagePercent / 100
//
// Stable-denominated, like every other input here.
func MaxAllowBetAmount(staked, betOnNumber, totalBet decimal.Decimal, totalNumbers int, maxMultiplier, slippagePercent int64) decimal.Decimal {
	if slippagePercent <= 0 || maxMultiplier <= 0 {
		return decimal.Zero
	}
	remaining := RemainingPoolAmount(staked, betOnNumber, totalBet, totalNumbers)
	return quo(remaining.Mul(decimal.NewFromInt(slippagePercent)), decimal.NewFromInt(100))
}

// MaxLockedExposure computes the pool's worst-case liability in reward-token
// terms: the largest single-number locked-in reward minus everything the
// pool has collected in bets. Only one number can win, so numbers do not
// stack. Floored at 0 (a fully covered book locks nothing).
func MaxLockedExposure(rewardByNumber map[int]decimal.Decimal, totalBet decimal.Decimal) decimal.Decimal {
	maxReward := decimal.Zero
	for _, r := range rewardByNumber {
		if r.GreaterThan(maxReward) {
			maxReward = r
		}
	}
	exposure := maxReward.Sub(totalBet)
	if exposure.Sign() < 0 {
		return decimal.Zero
	}
	return exposure
}
