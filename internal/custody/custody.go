// Package custody tracks token balances held on behalf of gamblers,
// bankers and the engine's own pool accounts. The engine never touches
// balances directly; every movement of value goes through a Custody so
// the service logic stays identical whether balances live in memory,
// an internal ledger service, or an on-chain vault.
package custody

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned when a transfer would overdraw the
// source account.
var ErrInsufficientBalance = errors.New("custody: insufficient balance")

// Custody moves token balances between accounts.
type Custody interface {
	// Transfer moves amount of token from one account to another.
	Transfer(ctx context.Context, token, from, to string, amount decimal.Decimal) error
	// Mint credits amount of token to an account out of thin air. Only
	// the farm's reward emission uses this.
	Mint(ctx context.Context, token, to string, amount decimal.Decimal) error
	// BalanceOf reports the balance of token held by account.
	BalanceOf(ctx context.Context, token, account string) (decimal.Decimal, error)
}

// MemoryCustody is an in-process Custody backed by a map. It is safe
// for concurrent use.
type MemoryCustody struct {
	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal // token -> account -> amount
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{balances: make(map[string]map[string]decimal.Decimal)}
}

// SetBalance seeds an account balance, for wiring and tests.
func (c *MemoryCustody) SetBalance(token, account string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(token, account, amount.Sub(c.balance(token, account)))
}

func (c *MemoryCustody) Transfer(ctx context.Context, token, from, to string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return errors.New("custody: negative transfer amount")
	}
	if amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance(token, from).LessThan(amount) {
		return ErrInsufficientBalance
	}
	c.credit(token, from, amount.Neg())
	c.credit(token, to, amount)
	return nil
}

func (c *MemoryCustody) Mint(ctx context.Context, token, to string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return errors.New("custody: negative mint amount")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(token, to, amount)
	return nil
}

func (c *MemoryCustody) BalanceOf(ctx context.Context, token, account string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance(token, account), nil
}

// balance and credit assume c.mu is held.

func (c *MemoryCustody) balance(token, account string) decimal.Decimal {
	if accounts, ok := c.balances[token]; ok {
		if b, ok := accounts[account]; ok {
			return b
		}
	}
	return decimal.Zero
}

func (c *MemoryCustody) credit(token, account string, delta decimal.Decimal) {
	accounts, ok := c.balances[token]
	if !ok {
		accounts = make(map[string]decimal.Decimal)
		c.balances[token] = accounts
	}
	accounts[account] = c.balance(token, account).Add(delta)
}
