// Package store defines the persistence interface for the lottery engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/lottera/lottery-core/internal/model"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Lottery operations ---

	// CreateLottery persists a new lottery round.
	CreateLottery(ctx context.Context, lottery *model.Lottery) error

	// GetLottery retrieves a lottery by its ID.
	GetLottery(ctx context.Context, id string) (*model.Lottery, error)

	// GetLotteryByName retrieves a lottery by its unique name.
	GetLotteryByName(ctx context.Context, name string) (*model.Lottery, error)

	// ListLotteries returns all lotteries.
	ListLotteries(ctx context.Context) ([]model.Lottery, error)

	// UpdateLotteryStatus moves a lottery between open and closed.
	UpdateLotteryStatus(ctx context.Context, id, status string) error

	// UpdateWinningCount changes how many winning numbers will be drawn.
	UpdateWinningCount(ctx context.Context, id string, count int) error

	// SetWinningNumbers records the drawn numbers for a closed lottery.
	SetWinningNumbers(ctx context.Context, id string, numbers []int) error

	// --- Bet ledger ---

	// InsertPurchases appends a batch of lottery purchases atomically.
	InsertPurchases(ctx context.Context, purchases []model.Purchase) error

	// GetPurchasesByLottery returns all purchases for a lottery in insert order.
	GetPurchasesByLottery(ctx context.Context, lotteryID string) ([]model.Purchase, error)

	// GetPurchasesByGambler returns a gambler's purchases for a lottery.
	GetPurchasesByGambler(ctx context.Context, lotteryID, gambler string) ([]model.Purchase, error)

	// MarkClaimed flags the given purchases as claimed.
	MarkClaimed(ctx context.Context, purchaseIDs []string) error

	// GetBetTotals aggregates bet amounts per number and overall.
	GetBetTotals(ctx context.Context, lotteryID string) (*model.BetTotals, error)

	// --- Banker stakes ---

	// UpsertStake sets a banker's stake position for a lottery.
	UpsertStake(ctx context.Context, stake *model.StakePosition) error

	// GetStake retrieves a banker's position. ErrNotFound if the banker
	// never staked.
	GetStake(ctx context.Context, lotteryID, banker string) (*model.StakePosition, error)

	// GetTotalStaked sums all banker principals for a lottery.
	GetTotalStaked(ctx context.Context, lotteryID string) (decimal.Decimal, error)

	// ScaleStakes multiplies every banker principal for a lottery by
	// factor, used to spread settlement gains and losses pro rata.
	ScaleStakes(ctx context.Context, lotteryID string, factor decimal.Decimal) error
}
