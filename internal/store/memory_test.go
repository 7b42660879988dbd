package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/model"
	"github.com/lottera/lottery-core/internal/store"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func seedLottery(t *testing.T, ms *store.MemoryStore, id, name string) {
	t.Helper()
	err := ms.CreateLottery(context.Background(), &model.Lottery{
		ID:                  id,
		Name:                name,
		Status:              model.StatusOpen,
		TotalNumbers:        100,
		MaxRewardMultiplier: 80,
		MaxSlippagePercent:  20,
		TotalWinningNumbers: 1,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create lottery: %v", err)
	}
}

func TestMemoryStore_GetByName(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	seedLottery(t, ms, "id-1", "daily-draw")

	l, err := ms.GetLotteryByName(ctx, "daily-draw")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if l.ID != "id-1" {
		t.Errorf("expected id-1, got %s", l.ID)
	}

	if _, err := ms.GetLotteryByName(ctx, "no-such"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Names are unique.
	err = ms.CreateLottery(ctx, &model.Lottery{ID: "id-2", Name: "daily-draw", Status: model.StatusOpen})
	if err == nil {
		t.Error("expected duplicate name to be rejected")
	}
}

func TestMemoryStore_BetTotalsAccumulate(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	seedLottery(t, ms, "id-1", "daily-draw")

	err := ms.InsertPurchases(ctx, []model.Purchase{
		{ID: "p1", LotteryID: "id-1", Gambler: "g1", Number: 1, Amount: d(10), Multiplier: 80},
		{ID: "p2", LotteryID: "id-1", Gambler: "g2", Number: 1, Amount: d(10), Multiplier: 79},
		{ID: "p3", LotteryID: "id-1", Gambler: "g1", Number: 2, Amount: d(5), Multiplier: 80},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	totals, err := ms.GetBetTotals(ctx, "id-1")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if !totals.On(1).Equal(d(20)) {
		t.Errorf("number 1 total: expected 20, got %s", totals.On(1))
	}
	if !totals.On(2).Equal(d(5)) {
		t.Errorf("number 2 total: expected 5, got %s", totals.On(2))
	}
	if !totals.Overall.Equal(d(25)) {
		t.Errorf("overall: expected 25, got %s", totals.Overall)
	}

	byGambler, err := ms.GetPurchasesByGambler(ctx, "id-1", "g1")
	if err != nil {
		t.Fatalf("by gambler: %v", err)
	}
	if len(byGambler) != 2 {
		t.Errorf("expected 2 purchases for g1, got %d", len(byGambler))
	}
}

func TestMemoryStore_ScaleStakesTruncates(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	seedLottery(t, ms, "id-1", "daily-draw")

	err := ms.UpsertStake(ctx, &model.StakePosition{LotteryID: "id-1", Banker: "b1", Principal: d(100000)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	err = ms.UpsertStake(ctx, &model.StakePosition{LotteryID: "id-1", Banker: "b2", Principal: d(50000)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	factor := decimal.NewFromInt(1).Div(decimal.NewFromInt(3)).Round(18)
	if err := ms.ScaleStakes(ctx, "id-1", factor); err != nil {
		t.Fatalf("scale: %v", err)
	}

	st, err := ms.GetStake(ctx, "id-1", "b1")
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if st.Principal.Exponent() < -18 {
		t.Errorf("principal should truncate to 18 places, got %s", st.Principal)
	}
	want := d(100000).Mul(factor).Truncate(18)
	if !st.Principal.Equal(want) {
		t.Errorf("expected %s, got %s", want, st.Principal)
	}

	total, err := ms.GetTotalStaked(ctx, "id-1")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if !total.Equal(want.Add(d(50000).Mul(factor).Truncate(18))) {
		t.Errorf("total staked mismatch: %s", total)
	}
}

func TestMemoryStore_MarkClaimed(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	seedLottery(t, ms, "id-1", "daily-draw")

	err := ms.InsertPurchases(ctx, []model.Purchase{
		{ID: "p1", LotteryID: "id-1", Gambler: "g1", Number: 1, Amount: d(10), Multiplier: 80},
		{ID: "p2", LotteryID: "id-1", Gambler: "g1", Number: 2, Amount: d(5), Multiplier: 80},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := ms.MarkClaimed(ctx, []string{"p1"}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	purchases, err := ms.GetPurchasesByGambler(ctx, "id-1", "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, p := range purchases {
		switch p.ID {
		case "p1":
			if !p.Claimed {
				t.Error("p1 should be claimed")
			}
		case "p2":
			if p.Claimed {
				t.Error("p2 should not be claimed")
			}
		}
	}
}
