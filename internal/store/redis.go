package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateLottery(ctx context.Context, l *model.Lottery) error {
	if err := s.primary.CreateLottery(ctx, l); err != nil {
		return err
	}
	s.cacheLottery(ctx, l)
	return nil
}

func (s *CachedStore) UpdateLotteryStatus(ctx context.Context, id, status string) error {
	if err := s.primary.UpdateLotteryStatus(ctx, id, status); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, lotteryKey(id))
	return nil
}

func (s *CachedStore) UpdateWinningCount(ctx context.Context, id string, count int) error {
	if err := s.primary.UpdateWinningCount(ctx, id, count); err != nil {
		return err
	}
	s.rdb.Del(ctx, lotteryKey(id))
	return nil
}

func (s *CachedStore) SetWinningNumbers(ctx context.Context, id string, numbers []int) error {
	if err := s.primary.SetWinningNumbers(ctx, id, numbers); err != nil {
		return err
	}
	s.rdb.Del(ctx, lotteryKey(id))
	return nil
}

func (s *CachedStore) InsertPurchases(ctx context.Context, purchases []model.Purchase) error {
	if err := s.primary.InsertPurchases(ctx, purchases); err != nil {
		return err
	}
	// Invalidate the aggregate cache for every lottery touched.
	for _, p := range purchases {
		s.rdb.Del(ctx, totalsKey(p.LotteryID))
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetLottery(ctx context.Context, id string) (*model.Lottery, error) {
	data, err := s.rdb.Get(ctx, lotteryKey(id)).Bytes()
	if err == nil {
		var l model.Lottery
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	// Cache miss: read from primary.
	l, err := s.primary.GetLottery(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheLottery(ctx, l)
	return l, nil
}

func (s *CachedStore) GetLotteryByName(ctx context.Context, name string) (*model.Lottery, error) {
	// Try cache via name→lotteryID mapping.
	lotteryID, err := s.rdb.Get(ctx, nameKey(name)).Result()
	if err == nil {
		return s.GetLottery(ctx, lotteryID)
	}

	// Cache miss.
	l, err := s.primary.GetLotteryByName(ctx, name)
	if err != nil {
		return nil, err
	}

	// Cache both the lottery and the name→ID mapping.
	s.cacheLottery(ctx, l)
	s.rdb.Set(ctx, nameKey(name), l.ID, s.ttl)
	return l, nil
}

func (s *CachedStore) GetBetTotals(ctx context.Context, lotteryID string) (*model.BetTotals, error) {
	data, err := s.rdb.Get(ctx, totalsKey(lotteryID)).Bytes()
	if err == nil {
		var t model.BetTotals
		if json.Unmarshal(data, &t) == nil {
			return &t, nil
		}
	}

	// Cache miss.
	t, err := s.primary.GetBetTotals(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(t); err == nil {
		s.rdb.Set(ctx, totalsKey(lotteryID), data, s.ttl)
	}
	return t, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListLotteries(ctx context.Context) ([]model.Lottery, error) {
	return s.primary.ListLotteries(ctx)
}

func (s *CachedStore) GetPurchasesByLottery(ctx context.Context, lotteryID string) ([]model.Purchase, error) {
	return s.primary.GetPurchasesByLottery(ctx, lotteryID)
}

func (s *CachedStore) GetPurchasesByGambler(ctx context.Context, lotteryID, gambler string) ([]model.Purchase, error) {
	return s.primary.GetPurchasesByGambler(ctx, lotteryID, gambler)
}

func (s *CachedStore) MarkClaimed(ctx context.Context, purchaseIDs []string) error {
	return s.primary.MarkClaimed(ctx, purchaseIDs)
}

func (s *CachedStore) UpsertStake(ctx context.Context, st *model.StakePosition) error {
	return s.primary.UpsertStake(ctx, st)
}

func (s *CachedStore) GetStake(ctx context.Context, lotteryID, banker string) (*model.StakePosition, error) {
	return s.primary.GetStake(ctx, lotteryID, banker)
}

func (s *CachedStore) GetTotalStaked(ctx context.Context, lotteryID string) (decimal.Decimal, error) {
	return s.primary.GetTotalStaked(ctx, lotteryID)
}

func (s *CachedStore) ScaleStakes(ctx context.Context, lotteryID string, factor decimal.Decimal) error {
	return s.primary.ScaleStakes(ctx, lotteryID, factor)
}

// --- Cache helpers ---

func (s *CachedStore) cacheLottery(ctx context.Context, l *model.Lottery) {
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, lotteryKey(l.ID), data, s.ttl)
	}
}

func lotteryKey(id string) string { return fmt.Sprintf("lottery:%s", id) }
func nameKey(name string) string { return fmt.Sprintf("lottery-name:%s", name) }
func totalsKey(id string) string { return fmt.Sprintf("bet-totals:%s", id) }
