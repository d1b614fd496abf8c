// Package amm provides fluent builders for market operations.
package amm

import (
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/amm"
	"github.com/LeJamon/goCustody/internal/testing"
)

// Default swap fee, 0.3%
const (
	DefaultFeeNumerator   = 3
	DefaultFeeDenominator = 1000
)

// SetupBuilder provides a fluent interface for building AMMSetup operations.
type SetupBuilder struct {
	creator   *testing.Account
	tokenMint tx.AccountID
	solMint   tx.AccountID
	feeNum    uint64
	feeDen    uint64
}

// Setup creates a SetupBuilder with the default fee.
func Setup(creator *testing.Account, tokenMint, solMint tx.AccountID) *SetupBuilder {
	return &SetupBuilder{
		creator:   creator,
		tokenMint: tokenMint,
		solMint:   solMint,
		feeNum:    DefaultFeeNumerator,
		feeDen:    DefaultFeeDenominator,
	}
}

// Fee sets the swap fee to num/den of the input.
func (b *SetupBuilder) Fee(num, den uint64) *SetupBuilder {
	b.feeNum, b.feeDen = num, den
	return b
}

// NoFee sets a zero swap fee.
func (b *SetupBuilder) NoFee() *SetupBuilder {
	return b.Fee(0, 1)
}

// Build constructs the AMMSetup operation.
func (b *SetupBuilder) Build() *amm.AMMSetup {
	return amm.NewAMMSetup(b.creator.ID, b.tokenMint, b.solMint, b.feeNum, b.feeDen)
}

// LiquidityBuilder provides a fluent interface for building AddLiquidity operations.
type LiquidityBuilder struct {
	creator      *testing.Account
	tokens       uint64
	sol          uint64
	tokenAccount tx.AccountID
	solAccount   tx.AccountID
	nonce        uint64
}

// AddLiquidity creates a LiquidityBuilder depositing tokens and, on the
// first deposit, sol.
func AddLiquidity(creator *testing.Account, tokens, sol uint64) *LiquidityBuilder {
	return &LiquidityBuilder{creator: creator, tokens: tokens, sol: sol}
}

// From sets the source token accounts.
func (b *LiquidityBuilder) From(tokenAccount, solAccount tx.AccountID) *LiquidityBuilder {
	b.tokenAccount, b.solAccount = tokenAccount, solAccount
	return b
}

// Nonce keeps an otherwise identical deposit distinct from an earlier one.
func (b *LiquidityBuilder) Nonce(n uint64) *LiquidityBuilder {
	b.nonce = n
	return b
}

// Build constructs the AddLiquidity operation.
func (b *LiquidityBuilder) Build() *amm.AddLiquidity {
	op := amm.NewAddLiquidity(b.creator.ID, b.tokens, b.sol)
	op.TokenAccount = b.tokenAccount
	op.SolAccount = b.solAccount
	op.Nonce = b.nonce
	return op
}

// SwapBuilder provides a fluent interface for building SwapTokens operations.
type SwapBuilder struct {
	trader       *testing.Account
	creator      *testing.Account
	amountIn     uint64
	dir          amm.Direction
	tokenAccount tx.AccountID
	solAccount   tx.AccountID
	nonce        uint64
}

// Swap creates a SwapBuilder trading amountIn against creator's market.
func Swap(trader, creator *testing.Account, amountIn uint64, dir amm.Direction) *SwapBuilder {
	return &SwapBuilder{trader: trader, creator: creator, amountIn: amountIn, dir: dir}
}

// SolToToken creates a SwapBuilder paying sol for tokens.
func SolToToken(trader, creator *testing.Account, amountIn uint64) *SwapBuilder {
	return Swap(trader, creator, amountIn, amm.SolToToken)
}

// TokenToSol creates a SwapBuilder paying tokens for sol.
func TokenToSol(trader, creator *testing.Account, amountIn uint64) *SwapBuilder {
	return Swap(trader, creator, amountIn, amm.TokenToSol)
}

// Accounts sets the trader token accounts.
func (b *SwapBuilder) Accounts(tokenAccount, solAccount tx.AccountID) *SwapBuilder {
	b.tokenAccount, b.solAccount = tokenAccount, solAccount
	return b
}

// Nonce keeps an otherwise identical swap distinct from an earlier one.
func (b *SwapBuilder) Nonce(n uint64) *SwapBuilder {
	b.nonce = n
	return b
}

// Build constructs the SwapTokens operation.
func (b *SwapBuilder) Build() *amm.SwapTokens {
	op := amm.NewSwapTokens(b.trader.ID, b.creator.ID, b.amountIn, b.dir)
	op.TraderTokenAccount = b.tokenAccount
	op.TraderSolAccount = b.solAccount
	op.Nonce = b.nonce
	return op
}
