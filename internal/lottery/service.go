// Package lottery provides the business logic and HTTP handlers for
// running number lotteries: creating rounds, taking wagers priced by the
// risk engine, pooling banker stakes, drawing winning numbers, and
// settling claims.
//
// All monetary values use shopspring/decimal — never float64 for money.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/custody"
	"github.com/lottera/lottery-core/internal/metrics"
	"github.com/lottera/lottery-core/internal/model"
	"github.com/lottera/lottery-core/internal/oracle"
	"github.com/lottera/lottery-core/internal/risk"
	"github.com/lottera/lottery-core/internal/store"
)

// AccessControl decides who may administer lotteries.
type AccessControl interface {
	IsOwner(caller string) bool
}

// StaticOwner is an AccessControl with a single fixed operator account.
type StaticOwner struct {
	Owner string
}

func (o StaticOwner) IsOwner(caller string) bool {
	return caller != "" && caller == o.Owner
}

// Config carries the token symbols and custody accounts the service
// settles against.
type Config struct {
	RewardToken string // token gamblers bet and claim in
	StableToken string // token bankers stake in
	PoolAccount string // custody account holding bets and stakes
	DexAccount  string // custody counterparty for settlement conversions
}

// Service handles lottery operations. Uses a mutex for serialized wager
// and settlement execution (single-instance). For horizontal scaling,
// replace with distributed locking or database-level optimistic
// concurrency.
type Service struct {
	store    store.Store
	custody  custody.Custody
	reserves oracle.ReserveSource
	access   AccessControl
	cfg      Config
	mu       sync.Mutex
	wsHub    *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new lottery service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, cust custody.Custody, reserves oracle.ReserveSource, access AccessControl, cfg Config, hub *WSHub) *Service {
	return &Service{
		store:    st,
		custody:  cust,
		reserves: reserves,
		access:   access,
		cfg:      cfg,
		wsHub:    hub,
	}
}

// CreateLotteryParams is the configuration for a new lottery round.
type CreateLotteryParams struct {
	Name                string
	TotalNumbers        int
	MaxRewardMultiplier int64
	MaxSlippagePercent  int64
	TotalWinningNumbers int
	FeePercent          int64
}

// Lottery names are URL-safe slugs.
var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateLottery opens a new round. Owner only.
func (s *Service) CreateLottery(ctx context.Context, caller string, p CreateLotteryParams) (*model.Lottery, error) {
	if !s.access.IsOwner(caller) {
		return nil, ErrNotOwner
	}
	if len(p.Name) < 3 || len(p.Name) > 64 || !namePattern.MatchString(p.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, p.Name)
	}
	if p.TotalNumbers <= 0 {
		return nil, fmt.Errorf("%w: total_numbers must be positive", ErrInvalidConfig)
	}
	if p.MaxRewardMultiplier <= 0 {
		return nil, fmt.Errorf("%w: max_reward_multiplier must be positive", ErrInvalidConfig)
	}
	if p.MaxSlippagePercent <= 0 || p.MaxSlippagePercent > 100 {
		return nil, fmt.Errorf("%w: max_slippage_percent must be in (0,100]", ErrInvalidConfig)
	}
	if p.TotalWinningNumbers <= 0 || p.TotalWinningNumbers > p.TotalNumbers {
		return nil, fmt.Errorf("%w: total_winning_numbers must be in [1,total_numbers]", ErrInvalidConfig)
	}
	if p.FeePercent < 0 || p.FeePercent > 100 {
		return nil, fmt.Errorf("%w: fee_percent must be in [0,100]", ErrInvalidConfig)
	}

	l := &model.Lottery{
		ID:                  uuid.New().String(),
		Name:                p.Name,
		Status:              model.StatusOpen,
		TotalNumbers:        p.TotalNumbers,
		MaxRewardMultiplier: p.MaxRewardMultiplier,
		MaxSlippagePercent:  p.MaxSlippagePercent,
		TotalWinningNumbers: p.TotalWinningNumbers,
		FeePercent:          p.FeePercent,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.store.CreateLottery(ctx, l); err != nil {
		return nil, err
	}
	metrics.OpenLotteries.Inc()
	return l, nil
}

// WagerEntry is one number/amount pair in a batch wager.
type WagerEntry struct {
	Number int             `json:"number"`
	Amount decimal.Decimal `json:"amount"`
}

// BuyWagers places a batch of wagers for one gambler. Entries are priced
// in order: each entry's reward multiplier is locked from the aggregates
// visible before the entry, and its amount is folded into the aggregates
// seen by the next entry. The batch is all-or-nothing; any invalid entry
// rejects the whole batch before funds move.
func (s *Service) BuyWagers(ctx context.Context, lotteryID, gambler string, entries []WagerEntry) ([]model.Purchase, error) {
	if gambler == "" {
		return nil, fmt.Errorf("%w: gambler is required", ErrInvalidConfig)
	}
	if len(entries) == 0 {
		return nil, ErrZeroAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if l.Status != model.StatusOpen || l.Drawn() {
		return nil, ErrLotteryClosed
	}

	staked, err := s.store.GetTotalStaked(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.GetBetTotals(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	// The gambler's prior bets per number count against the allowance.
	prior, err := s.store.GetPurchasesByGambler(ctx, lotteryID, gambler)
	if err != nil {
		return nil, err
	}
	gamblerOn := make(map[int]decimal.Decimal)
	for _, p := range prior {
		gamblerOn[p.Number] = gamblerOn[p.Number].Add(p.Amount)
	}

	byNumber := make(map[int]decimal.Decimal, len(totals.ByNumber))
	for n, amt := range totals.ByNumber {
		byNumber[n] = amt
	}
	overall := totals.Overall

	now := time.Now().UTC()
	purchases := make([]model.Purchase, 0, len(entries))
	batchTotal := decimal.Zero

	for _, e := range entries {
		if e.Amount.Sign() <= 0 {
			return nil, ErrZeroAmount
		}
		if e.Number < 0 || e.Number >= l.TotalNumbers {
			return nil, fmt.Errorf("%w: %d", ErrInvalidNumber, e.Number)
		}

		betOn := byNumber[e.Number]
		maxAllow := risk.MaxAllowBetAmount(staked, betOn, overall, l.TotalNumbers,
			l.MaxRewardMultiplier, l.MaxSlippagePercent)
		if e.Amount.Add(gamblerOn[e.Number]).GreaterThan(maxAllow) {
			return nil, fmt.Errorf("%w: number %d allows %s", ErrExceedsMaxAllowance, e.Number, maxAllow)
		}

		mult := risk.RewardMultiplier(staked, betOn, overall, l.TotalNumbers, l.MaxRewardMultiplier)

		purchases = append(purchases, model.Purchase{
			ID:         uuid.New().String(),
			LotteryID:  lotteryID,
			Gambler:    gambler,
			Number:     e.Number,
			Amount:     e.Amount,
			Multiplier: mult,
			Timestamp:  now,
		})

		byNumber[e.Number] = betOn.Add(e.Amount)
		overall = overall.Add(e.Amount)
		gamblerOn[e.Number] = gamblerOn[e.Number].Add(e.Amount)
		batchTotal = batchTotal.Add(e.Amount)
	}

	// Collect funds before recording; an overdraft rejects the batch.
	if err := s.custody.Transfer(ctx, s.cfg.RewardToken, gambler, s.cfg.PoolAccount, batchTotal); err != nil {
		return nil, err
	}
	if err := s.store.InsertPurchases(ctx, purchases); err != nil {
		// Refund the batch; the wagers were never recorded.
		if cerr := s.custody.Transfer(ctx, s.cfg.RewardToken, s.cfg.PoolAccount, gambler, batchTotal); cerr != nil {
			slog.Error("wager compensation failed",
				"lottery", lotteryID,
				"gambler", gambler,
				"err", cerr,
			)
		}
		return nil, err
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "wagers_placed",
			LotteryID: lotteryID,
			Gambler:   gambler,
			Amount:    batchTotal.String(),
		})
	}
	return purchases, nil
}

// StakeStable adds stable-token principal to the lottery's banker pool.
func (s *Service) StakeStable(ctx context.Context, lotteryID, banker string, amount decimal.Decimal) (*model.StakePosition, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if l.Status != model.StatusOpen || l.Drawn() {
		return nil, ErrLotteryClosed
	}

	if err := s.custody.Transfer(ctx, s.cfg.StableToken, banker, s.cfg.PoolAccount, amount); err != nil {
		return nil, err
	}

	principal := decimal.Zero
	if st, err := s.store.GetStake(ctx, lotteryID, banker); err == nil {
		principal = st.Principal
	}

	pos := &model.StakePosition{
		LotteryID: lotteryID,
		Banker:    banker,
		Principal: principal.Add(amount),
	}
	if err := s.store.UpsertStake(ctx, pos); err != nil {
		// Return the deposit; the ledger never recorded it.
		if cerr := s.custody.Transfer(ctx, s.cfg.StableToken, s.cfg.PoolAccount, banker, amount); cerr != nil {
			slog.Error("stake compensation failed",
				"lottery", lotteryID,
				"banker", banker,
				"err", cerr,
			)
		}
		return nil, err
	}
	return pos, nil
}

// UnstakeStable withdraws stable-token principal. The withdrawal is
// capped at the banker's share of the pool that is not locked behind
// potential payouts.
func (s *Service) UnstakeStable(ctx context.Context, lotteryID, banker string, amount decimal.Decimal) (*model.StakePosition, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	st, err := s.store.GetStake(ctx, lotteryID, banker)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(st.Principal) {
		return nil, ErrExceedsStaked
	}

	total, err := s.store.GetTotalStaked(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	locked, err := s.lockedStable(ctx, l)
	if err != nil {
		return nil, err
	}

	// Each banker may withdraw only their share of the unlocked pool.
	available := st.Principal
	if total.Sign() > 0 && locked.Sign() > 0 {
		lockedRatio := locked.DivRound(total, 18)
		available = st.Principal.Mul(decimal.NewFromInt(1).Sub(lockedRatio)).Truncate(18)
	}
	if amount.GreaterThan(available) {
		return nil, fmt.Errorf("%w: %s available", ErrExceedsUnlocked, available)
	}

	// Record the reduced principal before paying out; if the payout
	// fails the old principal is restored, so the ledger never shows
	// money that already left.
	pos := &model.StakePosition{
		LotteryID: lotteryID,
		Banker:    banker,
		Principal: st.Principal.Sub(amount),
	}
	if err := s.store.UpsertStake(ctx, pos); err != nil {
		return nil, err
	}
	if err := s.custody.Transfer(ctx, s.cfg.StableToken, s.cfg.PoolAccount, banker, amount); err != nil {
		if serr := s.store.UpsertStake(ctx, st); serr != nil {
			slog.Error("unstake compensation failed",
				"lottery", lotteryID,
				"banker", banker,
				"err", serr,
			)
		}
		return nil, err
	}
	return pos, nil
}

// CloseLottery stops further wagers and stakes ahead of a draw. Owner only.
func (s *Service) CloseLottery(ctx context.Context, lotteryID, caller string) error {
	if !s.access.IsOwner(caller) {
		return ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return err
	}
	if l.Status != model.StatusOpen || l.Drawn() {
		return ErrAlreadyClosed
	}
	if err := s.store.UpdateLotteryStatus(ctx, lotteryID, model.StatusClosed); err != nil {
		return err
	}
	metrics.OpenLotteries.Dec()
	return nil
}

// ReopenLottery reverses a close that has not yet been drawn. Owner only.
func (s *Service) ReopenLottery(ctx context.Context, lotteryID, caller string) error {
	if !s.access.IsOwner(caller) {
		return ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return err
	}
	if l.Drawn() {
		return ErrAlreadyClosed
	}
	if l.Status != model.StatusClosed {
		return ErrLotteryNotClosed
	}
	if err := s.store.UpdateLotteryStatus(ctx, lotteryID, model.StatusOpen); err != nil {
		return err
	}
	metrics.OpenLotteries.Inc()
	return nil
}

// AdjustTotalWinningNumber changes how many numbers the draw will
// produce. Only allowed between close and draw. Owner only.
func (s *Service) AdjustTotalWinningNumber(ctx context.Context, lotteryID, caller string, count int) error {
	if !s.access.IsOwner(caller) {
		return ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return err
	}
	if l.Drawn() {
		return ErrAlreadyClosed
	}
	if l.Status != model.StatusClosed {
		return ErrLotteryNotClosed
	}
	if count <= 0 || count > l.TotalNumbers {
		return ErrWinningCountMismatch
	}
	return s.store.UpdateWinningCount(ctx, lotteryID, count)
}

// WinningNumbers returns the drawn numbers in draw order, or an empty
// slice before the draw.
func (s *Service) WinningNumbers(ctx context.Context, lotteryID string) ([]int, error) {
	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	return l.WinningNumbers, nil
}

// RewardMultiplier quotes the multiplier the next wager on number would
// lock in.
func (s *Service) RewardMultiplier(ctx context.Context, lotteryID string, number int) (int64, error) {
	l, totals, staked, err := s.riskInputs(ctx, lotteryID)
	if err != nil {
		return 0, err
	}
	if number < 0 || number >= l.TotalNumbers {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}
	return risk.RewardMultiplier(staked, totals.On(number), totals.Overall,
		l.TotalNumbers, l.MaxRewardMultiplier), nil
}

// MaxAllowBet quotes the largest total wager currently accepted on number.
func (s *Service) MaxAllowBet(ctx context.Context, lotteryID string, number int) (decimal.Decimal, error) {
	l, totals, staked, err := s.riskInputs(ctx, lotteryID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if number < 0 || number >= l.TotalNumbers {
		return decimal.Decimal{}, fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}
	return risk.MaxAllowBetAmount(staked, totals.On(number), totals.Overall,
		l.TotalNumbers, l.MaxRewardMultiplier, l.MaxSlippagePercent), nil
}

// LockedStable reports the stable-token amount locked behind the worst
// possible draw, and that amount as a percentage of the staked pool.
func (s *Service) LockedStable(ctx context.Context, lotteryID string) (amount, percent decimal.Decimal, err error) {
	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	locked, err := s.lockedStable(ctx, l)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	total, err := s.store.GetTotalStaked(ctx, lotteryID)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	percent = decimal.Zero
	if total.Sign() > 0 {
		percent = locked.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return locked, percent, nil
}

// BankerStaked returns a banker's current principal, zero if they never
// staked.
func (s *Service) BankerStaked(ctx context.Context, lotteryID, banker string) (decimal.Decimal, error) {
	st, err := s.store.GetStake(ctx, lotteryID, banker)
	if err != nil {
		if isNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, err
	}
	return st.Principal, nil
}

// Wagers returns a gambler's purchase history for a lottery.
func (s *Service) Wagers(ctx context.Context, lotteryID, gambler string) ([]model.Purchase, error) {
	if _, err := s.store.GetLottery(ctx, lotteryID); err != nil {
		return nil, err
	}
	return s.store.GetPurchasesByGambler(ctx, lotteryID, gambler)
}

// riskInputs loads the lottery, bet aggregates, and staked pool used by
// the risk views and wager pricing.
func (s *Service) riskInputs(ctx context.Context, lotteryID string) (*model.Lottery, *model.BetTotals, decimal.Decimal, error) {
	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, nil, decimal.Decimal{}, err
	}
	totals, err := s.store.GetBetTotals(ctx, lotteryID)
	if err != nil {
		return nil, nil, decimal.Decimal{}, err
	}
	staked, err := s.store.GetTotalStaked(ctx, lotteryID)
	if err != nil {
		return nil, nil, decimal.Decimal{}, err
	}
	return l, totals, staked, nil
}

// lockedStable values the worst-case payout in stable-token terms. Once
// the draw lands the pool has settled, so nothing stays locked.
func (s *Service) lockedStable(ctx context.Context, l *model.Lottery) (decimal.Decimal, error) {
	if l.Drawn() {
		return decimal.Zero, nil
	}

	purchases, err := s.store.GetPurchasesByLottery(ctx, l.ID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	rewards := make(map[int]decimal.Decimal)
	totalBets := decimal.Zero
	for _, p := range purchases {
		payout := p.Amount.Mul(decimal.NewFromInt(p.Multiplier))
		rewards[p.Number] = rewards[p.Number].Add(payout)
		totalBets = totalBets.Add(p.Amount)
	}

	lockedReward := risk.MaxLockedExposure(rewards, totalBets)
	if lockedReward.IsZero() {
		return decimal.Zero, nil
	}
	return oracle.QuoteRewardToStable(ctx, s.reserves, lockedReward)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
