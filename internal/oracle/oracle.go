// Package oracle prices conversions between the reward token and the
// stable token off an AMM-style constant-product pair.
//
// Quote is the pure pricing boundary: given the pair reserves it returns
// the output amount for a given input along the curve, with no fee and
// truncation to 18 decimal places. Reserve discovery lives behind the
// ReserveSource interface so the service can run against a static pair
// in tests and a live feed in production.
package oracle

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrOracleUnavailable is returned when the pair cannot price a quote,
// typically because one of its reserves is zero or unset.
var ErrOracleUnavailable = errors.New("oracle: price unavailable")

// AmountScale is the decimal precision quotes are truncated to.
var AmountScale int32 = 18

// Quote returns the amount of output token received for amountIn of the
// input token against a pair holding reserveIn/reserveOut, following the
// constant-product curve without a fee:
//
//	out = amountIn * reserveOut / (reserveIn + amountIn)
//
// The result is truncated, never rounded. A zero amountIn quotes zero.
// Either reserve being non-positive means the pair cannot price and
// ErrOracleUnavailable is returned.
func Quote(amountIn, reserveIn, reserveOut decimal.Decimal) (decimal.Decimal, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Decimal{}, ErrOracleUnavailable
	}
	if amountIn.Sign() <= 0 {
		return decimal.Zero, nil
	}
	num := amountIn.Mul(reserveOut)
	den := reserveIn.Add(amountIn)
	q, _ := num.QuoRem(den, AmountScale)
	return q, nil
}

// Pair holds the reserves of a two-token pool at a point in time.
// Reward is the reward-token reserve, Stable the stable-token reserve.
type Pair struct {
	Reward decimal.Decimal
	Stable decimal.Decimal
}

// ReserveSource reports the current reserves of the reward/stable pair.
type ReserveSource interface {
	Reserves(ctx context.Context) (Pair, error)
}

// StaticSource is a ReserveSource with fixed reserves, for configuration
// defaults and tests.
type StaticSource struct {
	Pair Pair
}

func (s StaticSource) Reserves(ctx context.Context) (Pair, error) {
	return s.Pair, nil
}

// QuoteStableToReward prices amount of stable token in reward token
// against the current reserves of src.
func QuoteStableToReward(ctx context.Context, src ReserveSource, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := src.Reserves(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Quote(amount, p.Stable, p.Reward)
}

// QuoteRewardToStable prices amount of reward token in stable token
// against the current reserves of src.
func QuoteRewardToStable(ctx context.Context, src ReserveSource, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := src.Reserves(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Quote(amount, p.Reward, p.Stable)
}
