package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lottera/lottery-core/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const lotteryColumns = `id, name, status, total_numbers, max_reward_multiplier,
	        max_slippage_percent, total_winning_numbers, fee_percent,
	        winning_numbers, created_at`

func (s *PostgresStore) CreateLottery(ctx context.Context, l *model.Lottery) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lotteries (id, name, status, total_numbers, max_reward_multiplier,
		                        max_slippage_percent, total_winning_numbers, fee_percent,
		                        winning_numbers, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.Name, l.Status, l.TotalNumbers, l.MaxRewardMultiplier,
		l.MaxSlippagePercent, l.TotalWinningNumbers, l.FeePercent,
		intsToInt64(l.WinningNumbers), l.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetLottery(ctx context.Context, id string) (*model.Lottery, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+lotteryColumns+` FROM lotteries WHERE id = $1`, id)
	l, err := scanLottery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lottery %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get lottery %s: %w", id, err)
	}
	return l, nil
}

func (s *PostgresStore) GetLotteryByName(ctx context.Context, name string) (*model.Lottery, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+lotteryColumns+` FROM lotteries WHERE name = $1`, name)
	l, err := scanLottery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lottery named %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get lottery named %s: %w", name, err)
	}
	return l, nil
}

func (s *PostgresStore) ListLotteries(ctx context.Context) ([]model.Lottery, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+lotteryColumns+` FROM lotteries ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lotteries []model.Lottery
	for rows.Next() {
		l, err := scanLottery(rows)
		if err != nil {
			return nil, err
		}
		lotteries = append(lotteries, *l)
	}
	return lotteries, rows.Err()
}

func (s *PostgresStore) UpdateLotteryStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lotteries SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateWinningCount(ctx context.Context, id string, count int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lotteries SET total_winning_numbers = $2 WHERE id = $1`, id, count)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetWinningNumbers(ctx context.Context, id string, numbers []int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lotteries SET winning_numbers = $2 WHERE id = $1`,
		id, intsToInt64(numbers))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lottery %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertPurchases(ctx context.Context, purchases []model.Purchase) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, p := range purchases {
		if _, err := tx.Exec(ctx,
			`INSERT INTO purchases (id, lottery_id, gambler, number, amount, multiplier, claimed, timestamp)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8)`,
			p.ID, p.LotteryID, p.Gambler, p.Number,
			p.Amount.String(), p.Multiplier, p.Claimed, p.Timestamp,
		); err != nil {
			return err
		}
		// Aggregates are maintained in the same transaction, never
		// rebuilt by scanning purchases.
		if _, err := tx.Exec(ctx,
			`INSERT INTO bet_totals (lottery_id, number, amount)
			 VALUES ($1, $2, $3::NUMERIC)
			 ON CONFLICT (lottery_id, number)
			 DO UPDATE SET amount = bet_totals.amount + EXCLUDED.amount`,
			p.LotteryID, p.Number, p.Amount.String(),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPurchasesByLottery(ctx context.Context, lotteryID string) ([]model.Purchase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lottery_id, gambler, number, amount::TEXT, multiplier, claimed, timestamp
		 FROM purchases WHERE lottery_id = $1 ORDER BY timestamp, id`, lotteryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

func (s *PostgresStore) GetPurchasesByGambler(ctx context.Context, lotteryID, gambler string) ([]model.Purchase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lottery_id, gambler, number, amount::TEXT, multiplier, claimed, timestamp
		 FROM purchases WHERE lottery_id = $1 AND gambler = $2 ORDER BY timestamp, id`,
		lotteryID, gambler)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

func (s *PostgresStore) MarkClaimed(ctx context.Context, purchaseIDs []string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE purchases SET claimed = TRUE WHERE id = ANY($1)`, purchaseIDs)
	return err
}

func (s *PostgresStore) GetBetTotals(ctx context.Context, lotteryID string) (*model.BetTotals, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT number, amount::TEXT
		 FROM bet_totals WHERE lottery_id = $1`, lotteryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := &model.BetTotals{ByNumber: make(map[int]decimal.Decimal)}
	for rows.Next() {
		var number int
		var amountS string
		if err := rows.Scan(&number, &amountS); err != nil {
			return nil, err
		}
		amount, _ := decimal.NewFromString(amountS)
		totals.ByNumber[number] = amount
		totals.Overall = totals.Overall.Add(amount)
	}
	return totals, rows.Err()
}

func (s *PostgresStore) UpsertStake(ctx context.Context, st *model.StakePosition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stakes (lottery_id, banker, principal)
		 VALUES ($1, $2, $3::NUMERIC)
		 ON CONFLICT (lottery_id, banker) DO UPDATE SET principal = EXCLUDED.principal`,
		st.LotteryID, st.Banker, st.Principal.String(),
	)
	return err
}

func (s *PostgresStore) GetStake(ctx context.Context, lotteryID, banker string) (*model.StakePosition, error) {
	var principalS string
	err := s.pool.QueryRow(ctx,
		`SELECT principal::TEXT FROM stakes WHERE lottery_id = $1 AND banker = $2`,
		lotteryID, banker).Scan(&principalS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stake %s/%s: %w", lotteryID, banker, ErrNotFound)
		}
		return nil, fmt.Errorf("get stake %s/%s: %w", lotteryID, banker, err)
	}

	principal, _ := decimal.NewFromString(principalS)
	return &model.StakePosition{LotteryID: lotteryID, Banker: banker, Principal: principal}, nil
}

func (s *PostgresStore) GetTotalStaked(ctx context.Context, lotteryID string) (decimal.Decimal, error) {
	var totalS string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(principal), 0)::TEXT FROM stakes WHERE lottery_id = $1`,
		lotteryID).Scan(&totalS)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total, _ := decimal.NewFromString(totalS)
	return total, nil
}

func (s *PostgresStore) ScaleStakes(ctx context.Context, lotteryID string, factor decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE stakes SET principal = TRUNC(principal * $2::NUMERIC, 18)
		 WHERE lottery_id = $1`,
		lotteryID, factor.String(),
	)
	return err
}

// --- Row scanning helpers ---

type pgxRow interface {
	Scan(dest ...interface{}) error
}

func scanLottery(row pgxRow) (*model.Lottery, error) {
	var l model.Lottery
	var winning []int64

	if err := row.Scan(&l.ID, &l.Name, &l.Status, &l.TotalNumbers, &l.MaxRewardMultiplier,
		&l.MaxSlippagePercent, &l.TotalWinningNumbers, &l.FeePercent,
		&winning, &l.CreatedAt); err != nil {
		return nil, err
	}

	l.WinningNumbers = int64ToInts(winning)
	return &l, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanPurchases(rows pgxRows) ([]model.Purchase, error) {
	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var amountS string

		if err := rows.Scan(&p.ID, &p.LotteryID, &p.Gambler, &p.Number,
			&amountS, &p.Multiplier, &p.Claimed, &p.Timestamp); err != nil {
			return nil, err
		}

		p.Amount, _ = decimal.NewFromString(amountS)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// Winning numbers travel as BIGINT[]; pgx maps those to []int64.

func intsToInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func int64ToInts(in []int64) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
