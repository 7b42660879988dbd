package custody

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustody()
	c.SetBalance("BUSD", "alice", d(100))

	if err := c.Transfer(ctx, "BUSD", "alice", "pool", d(40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := c.BalanceOf(ctx, "BUSD", "alice"); !got.Equal(d(60)) {
		t.Errorf("alice: expected 60, got %s", got)
	}
	if got, _ := c.BalanceOf(ctx, "BUSD", "pool"); !got.Equal(d(40)) {
		t.Errorf("pool: expected 40, got %s", got)
	}
}

func TestTransfer_Insufficient(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustody()
	c.SetBalance("BUSD", "alice", d(10))

	err := c.Transfer(ctx, "BUSD", "alice", "pool", d(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Balances untouched on failure.
	if got, _ := c.BalanceOf(ctx, "BUSD", "alice"); !got.Equal(d(10)) {
		t.Errorf("alice: expected 10, got %s", got)
	}
}

func TestTransfer_TokensIsolated(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustody()
	c.SetBalance("BUSD", "alice", d(100))

	if err := c.Transfer(ctx, "LTR", "alice", "pool", d(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance across tokens, got %v", err)
	}
}

func TestMint(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustody()
	if err := c.Mint(ctx, "LTR", "bob", d(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Mint(ctx, "LTR", "bob", d(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := c.BalanceOf(ctx, "LTR", "bob"); !got.Equal(d(8)) {
		t.Errorf("expected 8, got %s", got)
	}
}

func TestTransfer_ZeroIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustody()
	if err := c.Transfer(ctx, "BUSD", "nobody", "pool", decimal.Zero); err != nil {
		t.Fatalf("zero transfer should succeed, got %v", err)
	}
}
