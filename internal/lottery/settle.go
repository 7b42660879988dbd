package lottery

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/model"
	"github.com/lottera/lottery-core/internal/oracle"
)

// SettlementResult summarizes the pool movement caused by a draw.
type SettlementResult struct {
	LotteryID      string          `json:"lottery_id"`
	WinningNumbers []int           `json:"winning_numbers"`
	TotalBets      decimal.Decimal `json:"total_bets"`
	TotalRewards   decimal.Decimal `json:"total_rewards"`
	NetReward      decimal.Decimal `json:"net_reward"`   // reward token, positive = house kept
	StableDelta    decimal.Decimal `json:"stable_delta"` // stable token credited (+) or debited (-) to the pool
}

// SetWinningNumbers records the draw for a closed lottery and settles
// the banker pool. Owner only.
//
// Settlement replays the locked multipliers on the winning purchases to
// compute the total reward owed, nets it against all bets collected, and
// converts the difference to stable through the oracle pair. Every
// banker principal is then scaled by the same gain or loss ratio.
func (s *Service) SetWinningNumbers(ctx context.Context, lotteryID, caller string, numbers []int) (*SettlementResult, error) {
	if !s.access.IsOwner(caller) {
		return nil, ErrNotOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}
	if l.Drawn() {
		return nil, ErrAlreadyClosed
	}
	if l.Status != model.StatusClosed {
		return nil, ErrLotteryNotClosed
	}
	if len(numbers) != l.TotalWinningNumbers {
		return nil, ErrWinningCountMismatch
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 0 || n >= l.TotalNumbers {
			return nil, ErrInvalidWinningNumber
		}
		if seen[n] {
			return nil, ErrDuplicateWinningNumber
		}
		seen[n] = true
	}

	purchases, err := s.store.GetPurchasesByLottery(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	totalBets := decimal.Zero
	totalRewards := decimal.Zero
	for _, p := range purchases {
		totalBets = totalBets.Add(p.Amount)
		if seen[p.Number] {
			totalRewards = totalRewards.Add(p.Amount.Mul(decimal.NewFromInt(p.Multiplier)))
		}
	}
	net := totalBets.Sub(totalRewards)

	total, err := s.store.GetTotalStaked(ctx, lotteryID)
	if err != nil {
		return nil, err
	}

	stableDelta := decimal.Zero
	if total.Sign() > 0 && net.Sign() != 0 {
		stableDelta, err = s.settlePool(ctx, lotteryID, net, total)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.SetWinningNumbers(ctx, lotteryID, numbers); err != nil {
		return nil, err
	}

	slog.Info("lottery drawn",
		"lottery", lotteryID,
		"winning_numbers", numbers,
		"total_bets", totalBets.String(),
		"total_rewards", totalRewards.String(),
		"stable_delta", stableDelta.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "lottery_drawn",
			LotteryID: lotteryID,
			Amount:    totalRewards.String(),
		})
	}

	return &SettlementResult{
		LotteryID:      lotteryID,
		WinningNumbers: numbers,
		TotalBets:      totalBets,
		TotalRewards:   totalRewards,
		NetReward:      net,
		StableDelta:    stableDelta,
	}, nil
}

// settlePool converts the net reward-token result of a round into stable
// through the dex counterparty and spreads it across banker principals
// pro rata. Returns the signed stable delta applied to the pool.
func (s *Service) settlePool(ctx context.Context, lotteryID string, net, total decimal.Decimal) (decimal.Decimal, error) {
	stableValue, err := oracle.QuoteRewardToStable(ctx, s.reserves, net.Abs())
	if err != nil {
		return decimal.Decimal{}, err
	}

	if net.Sign() > 0 {
		// Bankers won: surplus reward swaps out for stable.
		if err := s.custody.Transfer(ctx, s.cfg.RewardToken, s.cfg.PoolAccount, s.cfg.DexAccount, net); err != nil {
			return decimal.Decimal{}, err
		}
		if err := s.custody.Transfer(ctx, s.cfg.StableToken, s.cfg.DexAccount, s.cfg.PoolAccount, stableValue); err != nil {
			return decimal.Decimal{}, err
		}
	} else {
		// Bankers lost: stable swaps in to cover the reward shortfall.
		if err := s.custody.Transfer(ctx, s.cfg.StableToken, s.cfg.PoolAccount, s.cfg.DexAccount, stableValue); err != nil {
			return decimal.Decimal{}, err
		}
		if err := s.custody.Transfer(ctx, s.cfg.RewardToken, s.cfg.DexAccount, s.cfg.PoolAccount, net.Abs()); err != nil {
			return decimal.Decimal{}, err
		}
		stableValue = stableValue.Neg()
	}

	factor := total.Add(stableValue).DivRound(total, 18)
	if err := s.store.ScaleStakes(ctx, lotteryID, factor); err != nil {
		return decimal.Decimal{}, err
	}
	return stableValue, nil
}

// ClaimableReward sums a gambler's unclaimed winnings. Zero before the
// draw and after everything is claimed.
func (s *Service) ClaimableReward(ctx context.Context, lotteryID, gambler string) (decimal.Decimal, error) {
	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !l.Drawn() {
		return decimal.Zero, nil
	}

	purchases, err := s.store.GetPurchasesByGambler(ctx, lotteryID, gambler)
	if err != nil {
		return decimal.Decimal{}, err
	}

	winning := make(map[int]bool, len(l.WinningNumbers))
	for _, n := range l.WinningNumbers {
		winning[n] = true
	}

	claimable := decimal.Zero
	for _, p := range purchases {
		if !p.Claimed && winning[p.Number] {
			claimable = claimable.Add(p.Amount.Mul(decimal.NewFromInt(p.Multiplier)))
		}
	}
	return claimable, nil
}

// ClaimReward pays out a gambler's unclaimed winnings in reward token
// and marks the backing purchases claimed. Claiming twice pays zero the
// second time.
func (s *Service) ClaimReward(ctx context.Context, lotteryID, gambler string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetLottery(ctx, lotteryID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !l.Drawn() {
		return decimal.Decimal{}, ErrLotteryNotClosed
	}

	purchases, err := s.store.GetPurchasesByGambler(ctx, lotteryID, gambler)
	if err != nil {
		return decimal.Decimal{}, err
	}

	winning := make(map[int]bool, len(l.WinningNumbers))
	for _, n := range l.WinningNumbers {
		winning[n] = true
	}

	payout := decimal.Zero
	var claimedIDs []string
	for _, p := range purchases {
		if !p.Claimed && winning[p.Number] {
			payout = payout.Add(p.Amount.Mul(decimal.NewFromInt(p.Multiplier)))
			claimedIDs = append(claimedIDs, p.ID)
		}
	}
	if payout.IsZero() {
		return decimal.Zero, nil
	}

	if err := s.custody.Transfer(ctx, s.cfg.RewardToken, s.cfg.PoolAccount, gambler, payout); err != nil {
		return decimal.Decimal{}, err
	}
	if err := s.store.MarkClaimed(ctx, claimedIDs); err != nil {
		// Claw the payout back so the win stays claimable instead of
		// becoming double-payable.
		if cerr := s.custody.Transfer(ctx, s.cfg.RewardToken, gambler, s.cfg.PoolAccount, payout); cerr != nil {
			slog.Error("claim compensation failed",
				"lottery", lotteryID,
				"gambler", gambler,
				"amount", payout.String(),
				"err", cerr,
			)
		}
		return decimal.Decimal{}, err
	}

	slog.Info("reward claimed",
		"lottery", lotteryID,
		"gambler", gambler,
		"amount", payout.String(),
	)
	return payout, nil
}
