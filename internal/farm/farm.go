// Package farm implements an LP staking pool that accrues reward-token
// emissions per block, MasterChef style: a single accumulator tracks
// reward-per-share scaled by 1e12, and each staker carries a reward debt
// marking how much of the accumulator they are not entitled to.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Internally the accumulator math runs on integer wei (18 decimals) so
// truncation behaves identically to fixed-point ledgers.
package farm

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/custody"
	"github.com/lottera/lottery-core/internal/metrics"
)

// ErrExceedsShares rejects an unstake larger than the user's share balance.
var ErrExceedsShares = errors.New("unstake exceeds staked shares")

// ErrZeroAmount rejects zero or negative stake amounts.
var ErrZeroAmount = errors.New("amount must be positive")

// BlockSource reports the current block height the emission schedule
// runs against.
type BlockSource interface {
	Block() int64
}

// BlockFunc adapts a function to BlockSource.
type BlockFunc func() int64

func (f BlockFunc) Block() int64 { return f() }

// Config carries the farm's tokens, custody account, and emission rate.
type Config struct {
	LPToken          string          // token stakers deposit
	RewardToken      string          // token emissions are minted in
	FarmAccount      string          // custody account holding deposited LP
	EmissionPerBlock decimal.Decimal // reward token minted per block across the pool
	StartBlock       int64
}

// UserInfo is a staker's position snapshot.
type UserInfo struct {
	ShareAmount decimal.Decimal `json:"share_amount"`
	RewardDebt  decimal.Decimal `json:"reward_debt"`
}

// accScale converts between reward-per-share accumulator units and wei.
var accScale = decimal.New(1, 12)

type user struct {
	shares decimal.Decimal // face value
	debt   decimal.Decimal // wei
}

// Farm is a single-pool block-emission staking farm. Safe for concurrent
// use; one mutex serializes accumulator updates.
type Farm struct {
	mu          sync.Mutex
	custody     custody.Custody
	blocks      BlockSource
	cfg         Config
	acc         decimal.Decimal // reward per share, wei * 1e12 / share-wei
	lastBlock   int64
	totalShares decimal.Decimal // face value
	users       map[string]*user
}

// New creates a farm starting emissions at cfg.StartBlock.
func New(cust custody.Custody, blocks BlockSource, cfg Config) *Farm {
	return &Farm{
		custody:   cust,
		blocks:    blocks,
		cfg:       cfg,
		lastBlock: cfg.StartBlock,
		users:     make(map[string]*user),
	}
}

// update advances the accumulator to the current block. The last reward
// block always advances, even while the pool is empty. Caller holds f.mu.
func (f *Farm) update() {
	block := f.blocks.Block()
	if block <= f.lastBlock {
		return
	}
	if f.totalShares.Sign() > 0 {
		blocks := decimal.NewFromInt(block - f.lastBlock)
		rewardWei := blocks.Mul(f.cfg.EmissionPerBlock.Shift(18))
		inc, _ := rewardWei.Mul(accScale).QuoRem(f.totalShares.Shift(18), 0)
		f.acc = f.acc.Add(inc)
	}
	f.lastBlock = block
}

// pendingWei returns u's accrued but unpaid reward in wei. Caller holds f.mu.
func (f *Farm) pendingWei(u *user) decimal.Decimal {
	gross, _ := u.shares.Shift(18).Mul(f.acc).QuoRem(accScale, 0)
	return gross.Sub(u.debt)
}

// resetDebt rebases u's debt so the accrued pending survives the share
// change unpaid. Caller holds f.mu.
func (f *Farm) resetDebt(u *user, pending decimal.Decimal) {
	gross, _ := u.shares.Shift(18).Mul(f.acc).QuoRem(accScale, 0)
	u.debt = gross.Sub(pending)
}

// Stake deposits LP tokens into the farm. Accrued rewards are carried,
// not paid out.
func (f *Farm) Stake(ctx context.Context, account string, amount decimal.Decimal) (*UserInfo, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if err := f.custody.Transfer(ctx, f.cfg.LPToken, account, f.cfg.FarmAccount, amount); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.update()

	u, ok := f.users[account]
	if !ok {
		u = &user{}
		f.users[account] = u
	}

	pending := f.pendingWei(u)
	u.shares = u.shares.Add(amount)
	f.totalShares = f.totalShares.Add(amount)
	f.resetDebt(u, pending)
	metrics.FarmSharesStaked.Set(f.totalShares.InexactFloat64())

	slog.Info("lp staked",
		"account", account,
		"amount", amount.String(),
		"shares", u.shares.String(),
	)
	return f.snapshot(u), nil
}

// Unstake withdraws LP tokens. Accrued rewards are carried, not paid out.
// The LP transfer happens before any position state changes, so a custody
// failure leaves the position untouched.
func (f *Farm) Unstake(ctx context.Context, account string, amount decimal.Decimal) (*UserInfo, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.update()

	u, ok := f.users[account]
	if !ok || amount.GreaterThan(u.shares) {
		return nil, ErrExceedsShares
	}

	if err := f.custody.Transfer(ctx, f.cfg.LPToken, f.cfg.FarmAccount, account, amount); err != nil {
		return nil, err
	}

	pending := f.pendingWei(u)
	u.shares = u.shares.Sub(amount)
	f.totalShares = f.totalShares.Sub(amount)
	f.resetDebt(u, pending)
	metrics.FarmSharesStaked.Set(f.totalShares.InexactFloat64())

	slog.Info("lp unstaked",
		"account", account,
		"amount", amount.String(),
		"shares", u.shares.String(),
	)
	return f.snapshot(u), nil
}

// ClaimRewards mints the caller's pending rewards to their account and
// zeroes the accrual. The accrual is zeroed only once the mint succeeds;
// a custody failure leaves the reward claimable.
func (f *Farm) ClaimRewards(ctx context.Context, account string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.update()

	u, ok := f.users[account]
	if !ok {
		return decimal.Zero, nil
	}

	pending := f.pendingWei(u)
	if pending.Sign() <= 0 {
		return decimal.Zero, nil
	}

	amount := pending.Shift(-18)
	if err := f.custody.Mint(ctx, f.cfg.RewardToken, account, amount); err != nil {
		return decimal.Decimal{}, err
	}
	f.resetDebt(u, decimal.Zero)

	slog.Info("farm rewards claimed",
		"account", account,
		"amount", amount.String(),
	)
	return amount, nil
}

// GetRewards returns the reward amount a claim would pay right now.
func (f *Farm) GetRewards(account string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.update()

	u, ok := f.users[account]
	if !ok {
		return decimal.Zero
	}
	return f.pendingWei(u).Shift(-18)
}

// GetUserInfo returns the staker's share balance and reward debt.
func (f *Farm) GetUserInfo(account string) *UserInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[account]
	if !ok {
		return &UserInfo{ShareAmount: decimal.Zero, RewardDebt: decimal.Zero}
	}
	return f.snapshot(u)
}

// TotalShares returns the pool-wide staked LP balance.
func (f *Farm) TotalShares() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalShares
}

func (f *Farm) snapshot(u *user) *UserInfo {
	return &UserInfo{
		ShareAmount: u.shares,
		RewardDebt:  u.debt.Shift(-18),
	}
}
