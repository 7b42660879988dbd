package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from int64.
func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

// --- RemainingPoolAmount ---

func TestRemainingPoolAmount_NoBets(t *testing.T) {
	got := RemainingPoolAmount(d(1000000), d(0), d(0), 100)
	if !got.Equal(d(10000)) {
		t.Errorf("expected 10000, got %s", got)
	}
}

func TestRemainingPoolAmount_BetAtAverage(t *testing.T) {
	got := RemainingPoolAmount(d(1000000), d(100), d(10000), 100)
	if !got.Equal(d(10000)) {
		t.Errorf("expected unchanged baseline 10000, got %s", got)
	}
}

func TestRemainingPoolAmount_BetBelowAverage(t *testing.T) {
	got := RemainingPoolAmount(d(1000000), d(20), d(10000), 100)
	if !got.Equal(d(10080)) {
		t.Errorf("expected boosted 10080, got %s", got)
	}
}

func TestRemainingPoolAmount_BetAboveAverage(t *testing.T) {
	got := RemainingPoolAmount(d(1000000), d(500), d(10000), 100)
	if !got.Equal(d(9600)) {
		t.Errorf("expected reduced 9600, got %s", got)
	}
}

func TestRemainingPoolAmount_FlooredAtZero(t *testing.T) {
	// Bet far beyond baseline + average.
	got := RemainingPoolAmount(d(1000000), d(50000), d(10000), 100)
	if !got.Equal(decimal.Zero) {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestRemainingPoolAmount_DegenerateInputs(t *testing.T) {
	if got := RemainingPoolAmount(d(0), d(0), d(0), 100); !got.IsZero() {
		t.Errorf("zero stake should yield 0, got %s", got)
	}
	if got := RemainingPoolAmount(d(1000000), d(0), d(0), 0); !got.IsZero() {
		t.Errorf("zero numbers should yield 0, got %s", got)
	}
}

// --- RewardMultiplier ---

func TestRewardMultiplier_NoBets(t *testing.T) {
	got := RewardMultiplier(d(1000000), d(0), d(0), 100, 80)
	if got != 80 {
		t.Errorf("expected 80, got %d", got)
	}
}

func TestRewardMultiplier_BetAtAverage(t *testing.T) {
	got := RewardMultiplier(d(1000000), d(100), d(10000), 100, 80)
	if got != 80 {
		t.Errorf("expected 80, got %d", got)
	}
}

func TestRewardMultiplier_BetBelowAverage_ExceedsMax(t *testing.T) {
	// Deeply under-bet numbers price above the configured maximum — this is
	// intentional steering toward empty numbers, not clamped.
	got := RewardMultiplier(d(1000000), d(20), d(100000), 100, 80)
	if got != 87 {
		t.Errorf("expected 87, got %d", got)
	}
}

func TestRewardMultiplier_BetAboveAverage(t *testing.T) {
	got := RewardMultiplier(d(1000000), d(5000), d(15000), 100, 80)
	if got != 41 {
		t.Errorf("expected 41, got %d", got)
	}
}

func TestRewardMultiplier_MonotoneNonIncreasingInBet(t *testing.T) {
	prev := int64(1 << 62)
	for _, bet := range []int64{0, 1, 10, 100, 1000, 5000, 9000, 11000, 20000} {
		got := RewardMultiplier(d(1000000), d(bet), d(10000), 100, 80)
		if got > prev {
			t.Fatalf("multiplier increased from %d to %d at bet=%d", prev, got, bet)
		}
		if got < 0 {
			t.Fatalf("multiplier below zero at bet=%d: %d", bet, got)
		}
		prev = got
	}
}

func TestRewardMultiplier_HeavyOverBetFloorsAtZero(t *testing.T) {
	got := RewardMultiplier(d(1000), d(100000), d(100000), 100, 80)
	if got != 0 {
		t.Errorf("expected 0 for heavily over-bet number, got %d", got)
	}
}

// --- MaxAllowBetAmount ---

func TestMaxAllowBetAmount_NoBets(t *testing.T) {
	got := MaxAllowBetAmount(d(1000000), d(0), d(0), 100, 80, 20)
	if !got.Equal(d(2000)) {
		t.Errorf("expected 2000, got %s", got)
	}
}

func TestMaxAllowBetAmount_BetAtAverage(t *testing.T) {
	got := MaxAllowBetAmount(d(1000000), d(100), d(10000), 100, 80, 20)
	if !got.Equal(d(2000)) {
		t.Errorf("expected 2000, got %s", got)
	}
}

func TestMaxAllowBetAmount_BetAboveAverage(t *testing.T) {
	got := MaxAllowBetAmount(d(1000000), d(5000), d(15000), 100, 80, 20)
	if !got.Equal(d(1030)) {
		t.Errorf("expected 1030, got %s", got)
	}
}

func TestMaxAllowBetAmount_BetBelowAverage(t *testing.T) {
	got := MaxAllowBetAmount(d(1000000), d(20), d(10000), 100, 80, 20)
	if !got.Equal(d(2016)) {
		t.Errorf("expected 2016, got %s", got)
	}
}

// --- MaxLockedExposure ---

func TestMaxLockedExposure_SingleNumber(t *testing.T) {
	rewards := map[int]decimal.Decimal{1: d(80000)}
	got := MaxLockedExposure(rewards, d(1000))
	if !got.Equal(d(79000)) {
		t.Errorf("expected 79000, got %s", got)
	}
}

func TestMaxLockedExposure_TakesWorstNumber(t *testing.T) {
	// Only one number can win, so exposure is the worst single number minus
	// everything collected, not a sum.
	rewards := map[int]decimal.Decimal{1: d(80000), 2: d(88000)}
	got := MaxLockedExposure(rewards, d(2100))
	if !got.Equal(d(85900)) {
		t.Errorf("expected 85900, got %s", got)
	}
}

func TestMaxLockedExposure_CoveredBookLocksNothing(t *testing.T) {
	rewards := map[int]decimal.Decimal{1: d(500)}
	got := MaxLockedExposure(rewards, d(1000))
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestMaxLockedExposure_Empty(t *testing.T) {
	got := MaxLockedExposure(nil, d(0))
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}
