package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/lottera/lottery-core/internal/model"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	lotteries map[string]*model.Lottery
	purchases []model.Purchase
	totals    map[string]*model.BetTotals            // lotteryID -> aggregates
	stakes    map[string]map[string]decimal.Decimal // lotteryID -> banker -> principal
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lotteries: make(map[string]*model.Lottery),
		totals:    make(map[string]*model.BetTotals),
		stakes:    make(map[string]map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) CreateLottery(_ context.Context, l *model.Lottery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.lotteries {
		if existing.Name == l.Name {
			return fmt.Errorf("lottery named %s already exists", l.Name)
		}
	}

	// Store a copy to avoid external mutation.
	copy := *l
	copy.WinningNumbers = append([]int(nil), l.WinningNumbers...)
	s.lotteries[l.ID] = &copy
	return nil
}

func (s *MemoryStore) GetLottery(_ context.Context, id string) (*model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lotteries[id]
	if !ok {
		return nil, fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	return copyLottery(l), nil
}

func (s *MemoryStore) GetLotteryByName(_ context.Context, name string) (*model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.lotteries {
		if l.Name == name {
			return copyLottery(l), nil
		}
	}
	return nil, fmt.Errorf("lottery named %s: %w", name, ErrNotFound)
}

func (s *MemoryStore) ListLotteries(_ context.Context) ([]model.Lottery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lotteries := make([]model.Lottery, 0, len(s.lotteries))
	for _, l := range s.lotteries {
		lotteries = append(lotteries, *copyLottery(l))
	}
	return lotteries, nil
}

func (s *MemoryStore) UpdateLotteryStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lotteries[id]
	if !ok {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	l.Status = status
	return nil
}

func (s *MemoryStore) UpdateWinningCount(_ context.Context, id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lotteries[id]
	if !ok {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	l.TotalWinningNumbers = count
	return nil
}

func (s *MemoryStore) SetWinningNumbers(_ context.Context, id string, numbers []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lotteries[id]
	if !ok {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	l.WinningNumbers = append([]int(nil), numbers...)
	return nil
}

func (s *MemoryStore) InsertPurchases(_ context.Context, purchases []model.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range purchases {
		s.purchases = append(s.purchases, p)

		t, ok := s.totals[p.LotteryID]
		if !ok {
			t = &model.BetTotals{ByNumber: make(map[int]decimal.Decimal)}
			s.totals[p.LotteryID] = t
		}
		t.ByNumber[p.Number] = t.ByNumber[p.Number].Add(p.Amount)
		t.Overall = t.Overall.Add(p.Amount)
	}
	return nil
}

func (s *MemoryStore) GetPurchasesByLottery(_ context.Context, lotteryID string) ([]model.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Purchase
	for _, p := range s.purchases {
		if p.LotteryID == lotteryID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetPurchasesByGambler(_ context.Context, lotteryID, gambler string) ([]model.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Purchase
	for _, p := range s.purchases {
		if p.LotteryID == lotteryID && p.Gambler == gambler {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkClaimed(_ context.Context, purchaseIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(purchaseIDs))
	for _, id := range purchaseIDs {
		ids[id] = true
	}
	for i := range s.purchases {
		if ids[s.purchases[i].ID] {
			s.purchases[i].Claimed = true
		}
	}
	return nil
}

func (s *MemoryStore) GetBetTotals(_ context.Context, lotteryID string) (*model.BetTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &model.BetTotals{ByNumber: make(map[int]decimal.Decimal)}
	if t, ok := s.totals[lotteryID]; ok {
		for n, amt := range t.ByNumber {
			out.ByNumber[n] = amt
		}
		out.Overall = t.Overall
	}
	return out, nil
}

func (s *MemoryStore) UpsertStake(_ context.Context, st *model.StakePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bankers, ok := s.stakes[st.LotteryID]
	if !ok {
		bankers = make(map[string]decimal.Decimal)
		s.stakes[st.LotteryID] = bankers
	}
	bankers[st.Banker] = st.Principal
	return nil
}

func (s *MemoryStore) GetStake(_ context.Context, lotteryID, banker string) (*model.StakePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bankers, ok := s.stakes[lotteryID]; ok {
		if principal, ok := bankers[banker]; ok {
			return &model.StakePosition{LotteryID: lotteryID, Banker: banker, Principal: principal}, nil
		}
	}
	return nil, fmt.Errorf("stake %s/%s: %w", lotteryID, banker, ErrNotFound)
}

func (s *MemoryStore) GetTotalStaked(_ context.Context, lotteryID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, principal := range s.stakes[lotteryID] {
		total = total.Add(principal)
	}
	return total, nil
}

func (s *MemoryStore) ScaleStakes(_ context.Context, lotteryID string, factor decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for banker, principal := range s.stakes[lotteryID] {
		s.stakes[lotteryID][banker] = principal.Mul(factor).Truncate(18)
	}
	return nil
}

func copyLottery(l *model.Lottery) *model.Lottery {
	copy := *l
	copy.WinningNumbers = append([]int(nil), l.WinningNumbers...)
	return &copy
}
