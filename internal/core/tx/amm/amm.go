// Package amm implements constant product markets over custodial token
// accounts: AMMSetup, AddLiquidity and SwapTokens.
//
// A market is keyed by its creator. Its two vaults are token accounts owned
// by the market address; funds leave a vault only under the authority
// derived from the market record.
package amm

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	"github.com/holiman/uint256"
)

// Event types
const (
	EventSetup     = "amm.setup"
	EventLiquidity = "amm.liquidity"
	EventSwap      = "amm.swap"
)

// Invariant names
const (
	InvariantPayoutBound     = "amm_payout_bound"
	InvariantConstantProduct = "amm_constant_product"
	InvariantVaultBalance    = "amm_vault_balance"
)

var (
	// ErrZeroOutput is returned when a swap would pay nothing
	ErrZeroOutput = errors.New("swap output is zero")

	// ErrPoolDrained is returned when a swap would empty the payout vault
	ErrPoolDrained = errors.New("swap would drain the payout vault")

	ErrInvalidDirection = errors.New("invalid swap direction")
)

// Direction selects the side of the market a trader pays into.
type Direction uint8

const (
	DirectionInvalid Direction = iota
	// SolToToken pays into the sol vault and out of the token vault
	SolToToken
	// TokenToSol pays into the token vault and out of the sol vault
	TokenToSol
)

func (d Direction) String() string {
	switch d {
	case SolToToken:
		return "SolToToken"
	case TokenToSol:
		return "TokenToSol"
	default:
		return "Invalid"
	}
}

// ParseDirection maps a direction name.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "SolToToken", "sol-to-token":
		return SolToToken, nil
	case "TokenToSol", "token-to-sol":
		return TokenToSol, nil
	}
	return DirectionInvalid, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Pool is a market with its current vault balances.
type Pool struct {
	Market       *sle.MarketState
	TokenBalance uint64
	SolBalance   uint64
}

func (p Pool) sides(dir Direction) (input, payout uint64) {
	if dir == SolToToken {
		return p.SolBalance, p.TokenBalance
	}
	return p.TokenBalance, p.SolBalance
}

// SwapQuote is the settlement of one swap against a pool.
type SwapQuote struct {
	Direction Direction `json:"direction"`
	AmountIn  uint64    `json:"amount_in"`
	Fee       uint64    `json:"fee"`
	Effective uint64    `json:"effective_in"`
	AmountOut uint64    `json:"amount_out"`

	// Vault balances before the swap
	InputBalance  uint64 `json:"input_balance"`
	PayoutBalance uint64 `json:"payout_balance"`

	// NewInput is the input balance the curve is evaluated at
	NewInput  uint64 `json:"new_input"`
	NewPayout uint64 `json:"new_payout"`

	k *uint256.Int
}

// ProductBefore returns the constant product before the swap.
func (q SwapQuote) ProductBefore() *uint256.Int {
	return new(uint256.Int).Set(q.k)
}

// Quote settles amountIn against the pool. The fee stays in the input
// vault: the curve moves by the effective input while the vault receives
// the whole amount.
func Quote(pool Pool, amountIn uint64, dir Direction) (SwapQuote, error) {
	if dir != SolToToken && dir != TokenToSol {
		return SwapQuote{}, ErrInvalidDirection
	}
	if amountIn == 0 {
		return SwapQuote{}, ErrZeroOutput
	}
	input, payout := pool.sides(dir)
	q := SwapQuote{
		Direction:     dir,
		AmountIn:      amountIn,
		InputBalance:  input,
		PayoutBalance: payout,
	}

	var err error
	if q.Fee, err = amount.MulDiv(amountIn, pool.Market.FeeNumerator, pool.Market.FeeDenominator); err != nil {
		return SwapQuote{}, err
	}
	if q.Effective, err = amount.Sub(amountIn, q.Fee); err != nil {
		return SwapQuote{}, err
	}
	if _, err = amount.Add(input, amountIn); err != nil {
		return SwapQuote{}, err
	}

	q.k = amount.Product(payout, input)
	if q.NewInput, err = amount.Add(input, q.Effective); err != nil {
		return SwapQuote{}, err
	}
	if q.NewPayout, err = amount.DivWide(q.k, q.NewInput); err != nil {
		return SwapQuote{}, err
	}
	if q.AmountOut, err = amount.Sub(payout, q.NewPayout); err != nil {
		return SwapQuote{}, err
	}

	if q.AmountOut == 0 {
		return SwapQuote{}, ErrZeroOutput
	}
	if q.NewPayout == 0 {
		return SwapQuote{}, ErrPoolDrained
	}
	return q, nil
}

// verify checks the vault balances observed after the swap settled.
func (q SwapQuote) verify(ctx *tx.ApplyContext, inputAfter, payoutAfter uint64) tx.Result {
	if q.AmountOut >= q.PayoutBalance {
		return ctx.Invariant(InvariantPayoutBound, "paid %d from a vault of %d", q.AmountOut, q.PayoutBalance)
	}
	if inputAfter != q.InputBalance+q.AmountIn || payoutAfter != q.NewPayout {
		return ctx.Invariant(InvariantVaultBalance, "vaults at (%d, %d), expected (%d, %d)",
			inputAfter, payoutAfter, q.InputBalance+q.AmountIn, q.NewPayout)
	}

	// Flooring the payout loses less than one unit per unit of NewInput
	after := amount.Product(inputAfter, payoutAfter)
	after.Add(after, uint256.NewInt(q.NewInput))
	if after.Cmp(q.k) <= 0 {
		return ctx.Invariant(InvariantConstantProduct, "product fell from %s to %s",
			q.k.Dec(), amount.Product(inputAfter, payoutAfter).Dec())
	}
	return tx.TesSUCCESS
}

func marketKeylet(creator tx.AccountID) keylet.Derived {
	return keylet.MarketState(creator)
}

// MarketAddress returns the address of the market created by creator.
func MarketAddress(creator tx.AccountID) tx.AccountID {
	return marketKeylet(creator).Key
}

// TokenVaultAddress returns the token vault of the market created by creator.
func TokenVaultAddress(creator tx.AccountID) tx.AccountID {
	return keylet.TokenVault(MarketAddress(creator), creator).Key
}

// SolVaultAddress returns the sol vault of the market created by creator.
func SolVaultAddress(creator tx.AccountID) tx.AccountID {
	return keylet.SolVault(MarketAddress(creator), creator).Key
}

// loadPool reads a market and the balances of its vaults.
func loadPool(ctx *tx.ApplyContext, creator tx.AccountID) (Pool, tx.Result) {
	var market sle.MarketState
	if r := ctx.Load(marketKeylet(creator).Keylet, &market); r != tx.TesSUCCESS {
		return Pool{}, r
	}
	tokenVault, r := token.LoadAccount(ctx, market.TokenVault)
	if r != tx.TesSUCCESS {
		return Pool{}, r
	}
	solVault, r := token.LoadAccount(ctx, market.SolVault)
	if r != tx.TesSUCCESS {
		return Pool{}, r
	}
	return Pool{Market: &market, TokenBalance: tokenVault.Amount, SolBalance: solVault.Amount}, tx.TesSUCCESS
}

// marketAuthority derives the authority of a market from its persisted fields.
func marketAuthority(ctx *tx.ApplyContext, market *sle.MarketState) (tx.Authority, tx.Result) {
	return ctx.DeriveAuthority(keylet.MarketStateSeeds(market.Creator), market.StateBump)
}

// defaultAccount returns addr, or the associated token account of owner
// for mint when addr is unset.
func defaultAccount(addr, owner, mint tx.AccountID) tx.AccountID {
	if !addr.IsZero() {
		return addr
	}
	return keylet.AssociatedTokenAccount(owner, mint).Key
}

func balanceOf(ctx *tx.ApplyContext, addr tx.AccountID) (uint64, tx.Result) {
	acct, r := token.LoadAccount(ctx, addr)
	if r != tx.TesSUCCESS {
		return 0, r
	}
	return acct.Amount, tx.TesSUCCESS
}
