package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestQuote_ConstantProduct(t *testing.T) {
	// 1000 in against 10000/10000 reserves: 1000*10000/11000.
	got, err := Quote(d("1000"), d("10000"), d("10000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := d("909.090909090909090909")
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestQuote_Truncates(t *testing.T) {
	// 1/3 of the output side must truncate, not round up.
	got, err := Quote(d("1"), d("2"), d("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := d("0.333333333333333333")
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestQuote_ZeroAmount(t *testing.T) {
	got, err := Quote(decimal.Zero, d("10000"), d("10000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}

func TestQuote_ZeroReserves(t *testing.T) {
	if _, err := Quote(d("1"), decimal.Zero, d("10000")); !errors.Is(err, ErrOracleUnavailable) {
		t.Errorf("expected ErrOracleUnavailable, got %v", err)
	}
	if _, err := Quote(d("1"), d("10000"), decimal.Zero); !errors.Is(err, ErrOracleUnavailable) {
		t.Errorf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestQuote_OutputBelowReserve(t *testing.T) {
	// The curve can never pay out the full opposing reserve.
	got, err := Quote(d("1000000000"), d("100"), d("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.GreaterThanOrEqual(d("100")) {
		t.Errorf("output %s reached the reserve", got)
	}
}

func TestQuoteDirections(t *testing.T) {
	src := StaticSource{Pair: Pair{Reward: d("50000"), Stable: d("10000")}}
	ctx := context.Background()

	toReward, err := QuoteStableToReward(ctx, src, d("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1000*50000/11000
	if want := d("4545.454545454545454545"); !toReward.Equal(want) {
		t.Errorf("stable->reward: expected %s, got %s", want, toReward)
	}

	toStable, err := QuoteRewardToStable(ctx, src, d("5000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 5000*10000/55000
	if want := d("909.090909090909090909"); !toStable.Equal(want) {
		t.Errorf("reward->stable: expected %s, got %s", want, toStable)
	}
}
