package lottery

import "errors"

// Sentinel errors returned by the lottery service. HTTP handlers map
// these onto status codes: validation failures are 400, authorization
// 403, state conflicts and limit violations 409.
var (
	// ErrZeroAmount rejects wagers, stakes, and unstakes of zero or
	// negative amounts.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrInvalidNumber rejects wagers on a number outside the lottery's
	// outcome space.
	ErrInvalidNumber = errors.New("number out of range")

	// ErrInvalidName rejects lottery names that are not URL-safe slugs.
	ErrInvalidName = errors.New("invalid lottery name")

	// ErrInvalidConfig rejects lottery parameters outside their bounds.
	ErrInvalidConfig = errors.New("invalid lottery configuration")

	// ErrInvalidWinningNumber rejects a drawn number outside the
	// lottery's outcome space.
	ErrInvalidWinningNumber = errors.New("winning number out of range")

	// ErrDuplicateWinningNumber rejects a draw containing the same
	// number twice.
	ErrDuplicateWinningNumber = errors.New("duplicate winning number")

	// ErrWinningCountMismatch rejects a draw whose length does not match
	// the configured total winning numbers, or an invalid adjustment.
	ErrWinningCountMismatch = errors.New("winning number count mismatch")

	// ErrLotteryClosed rejects wagers and stakes against a lottery that
	// is not open.
	ErrLotteryClosed = errors.New("lottery is not open")

	// ErrLotteryNotClosed rejects draws and reopens against a lottery
	// that is still open.
	ErrLotteryNotClosed = errors.New("lottery is not closed")

	// ErrAlreadyClosed rejects a close, reopen, or draw against a
	// lottery that has already passed that point.
	ErrAlreadyClosed = errors.New("lottery already closed or drawn")

	// ErrNotOwner rejects administrative calls from anyone but the
	// configured operator.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrExceedsMaxAllowance rejects a wager larger than the slippage
	// limit allows on its number.
	ErrExceedsMaxAllowance = errors.New("bet exceeds max allowed amount")

	// ErrExceedsStaked rejects an unstake larger than the banker's
	// principal.
	ErrExceedsStaked = errors.New("unstake exceeds staked amount")

	// ErrExceedsUnlocked rejects an unstake that would dip into the
	// locked share of the pool.
	ErrExceedsUnlocked = errors.New("unstake exceeds unlocked amount")
)
