package amm

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	"github.com/LeJamon/goCustody/internal/storage/database/memory"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	creator   = tx.AccountID{0xc1}
	trader    = tx.AccountID{0xd1}
	tokenMint = tx.AccountID{0x0a}
	solMint   = tx.AccountID{0x0b}
)

func newContext(t *testing.T, signers ...tx.AccountID) *tx.ApplyContext {
	t.Helper()
	l, err := ledger.New(memory.NewDB())
	require.NoError(t, err)
	table := tx.NewApplyStateTable(l.View(context.Background()))
	ctx := tx.NewApplyContext(table, tx.EngineConfig{}, zaptest.NewLogger(t), signers...)

	require.Equal(t, tx.TesSUCCESS, ctx.Create(keylet.MintAt(tokenMint), &sle.Mint{Authority: creator, Name: "token"}))
	require.Equal(t, tx.TesSUCCESS, ctx.Create(keylet.MintAt(solMint), &sle.Mint{Authority: creator, Name: "sol"}))
	return ctx
}

func fund(t *testing.T, ctx *tx.ApplyContext, owner, mint tx.AccountID, amt uint64) tx.AccountID {
	t.Helper()
	addr := keylet.AssociatedTokenAccount(owner, mint).Key
	r := ctx.Create(keylet.TokenAccount(addr), &sle.TokenAccount{Mint: mint, Owner: owner, Amount: amt})
	require.Equal(t, tx.TesSUCCESS, r, ctx.Reason())
	return addr
}

func balance(t *testing.T, ctx *tx.ApplyContext, addr tx.AccountID) uint64 {
	t.Helper()
	acct, r := token.LoadAccount(ctx, addr)
	require.Equal(t, tx.TesSUCCESS, r, ctx.Reason())
	return acct.Amount
}

func vaults(t *testing.T, ctx *tx.ApplyContext) (tokens, sols uint64) {
	t.Helper()
	return balance(t, ctx, TokenVaultAddress(creator)), balance(t, ctx, SolVaultAddress(creator))
}

// market sets up a market of creator with the given liquidity and a
// trader holding tokens and sols of each mint.
func market(t *testing.T, num, den, tokens, sols, traderFunds uint64) *tx.ApplyContext {
	t.Helper()
	ctx := newContext(t, creator, trader)
	fund(t, ctx, creator, tokenMint, tokens)
	fund(t, ctx, creator, solMint, sols)
	fund(t, ctx, trader, tokenMint, traderFunds)
	fund(t, ctx, trader, solMint, traderFunds)

	require.Equal(t, tx.TesSUCCESS, NewAMMSetup(creator, tokenMint, solMint, num, den).Apply(ctx), ctx.Reason())
	if tokens > 0 {
		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, tokens, sols).Apply(ctx), ctx.Reason())
	}
	return ctx
}

func pool(num, den, tokens, sols uint64) Pool {
	return Pool{
		Market:       &sle.MarketState{FeeNumerator: num, FeeDenominator: den},
		TokenBalance: tokens,
		SolBalance:   sols,
	}
}

func TestQuote(t *testing.T) {
	t.Run("fee truncates to zero", func(t *testing.T) {
		q, err := Quote(pool(3, 1000, 1000, 1000), 100, TokenToSol)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), q.Fee)
		assert.Equal(t, uint64(1100), q.NewInput)
		assert.Equal(t, uint64(909), q.NewPayout)
		assert.Equal(t, uint64(91), q.AmountOut)
	})

	t.Run("fee retained in pool", func(t *testing.T) {
		q, err := Quote(pool(3, 1000, 100000, 100000), 100000, TokenToSol)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), q.Fee)
		assert.Equal(t, uint64(99700), q.Effective)
		assert.Equal(t, uint64(49925), q.AmountOut)

		k := amount.Product(100000, 100000)
		assert.Equal(t, k, q.ProductBefore())
		want, err := amount.DivWide(k, 199700)
		require.NoError(t, err)
		assert.Equal(t, 100000-want, q.AmountOut)

		after := amount.Product(200000, 100000-q.AmountOut)
		assert.Equal(t, 1, after.Cmp(k))
	})

	t.Run("zero fee keeps product within rounding", func(t *testing.T) {
		q, err := Quote(pool(0, 1, 1000, 1000), 100, SolToToken)
		require.NoError(t, err)
		k := q.ProductBefore()
		after := amount.Product(1100, 1000-q.AmountOut)
		assert.LessOrEqual(t, after.Cmp(k), 0)

		loss := new(uint256.Int).Sub(k, after)
		assert.True(t, loss.Lt(uint256.NewInt(q.NewInput)), "lost %s", loss.Dec())
	})

	t.Run("direction picks vaults", func(t *testing.T) {
		q, err := Quote(pool(0, 1, 1000, 4000), 100, SolToToken)
		require.NoError(t, err)
		assert.Equal(t, uint64(4000), q.InputBalance)
		assert.Equal(t, uint64(1000), q.PayoutBalance)

		q, err = Quote(pool(0, 1, 1000, 4000), 100, TokenToSol)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), q.InputBalance)
		assert.Equal(t, uint64(4000), q.PayoutBalance)
	})

	t.Run("output below payout", func(t *testing.T) {
		for _, in := range []uint64{1, 10, 999, 1000, 50000, 400000} {
			q, err := Quote(pool(3, 1000, 1000, 1000), in, TokenToSol)
			require.NoError(t, err, "in=%d", in)
			assert.Less(t, q.AmountOut, q.PayoutBalance, "in=%d", in)
			assert.Positive(t, q.AmountOut, "in=%d", in)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Quote(pool(0, 1, 0, 0), 100, TokenToSol)
		assert.ErrorIs(t, err, ErrZeroOutput)

		_, err = Quote(pool(0, 1, 1000, 1000), 0, TokenToSol)
		assert.ErrorIs(t, err, ErrZeroOutput)

		_, err = Quote(pool(0, 1, 1, 1), 10, TokenToSol)
		assert.ErrorIs(t, err, ErrPoolDrained)

		_, err = Quote(pool(0, 1, math.MaxUint64, 10), 1, TokenToSol)
		assert.ErrorIs(t, err, amount.ErrOverflow)

		_, err = Quote(pool(0, 0, 10, 10), 1, TokenToSol)
		assert.ErrorIs(t, err, amount.ErrDivisionByZero)

		_, err = Quote(pool(0, 1, 10, 10), 1, DirectionInvalid)
		assert.ErrorIs(t, err, ErrInvalidDirection)
	})
}

func TestAMMSetup(t *testing.T) {
	t.Run("creates market and vaults", func(t *testing.T) {
		ctx := market(t, 3, 1000, 0, 0, 0)

		var m sle.MarketState
		require.Equal(t, tx.TesSUCCESS, ctx.Load(keylet.MarketState(creator).Keylet, &m))
		assert.Equal(t, uint64(3), m.FeeNumerator)
		assert.Equal(t, uint64(1000), m.FeeDenominator)
		assert.Equal(t, TokenVaultAddress(creator), m.TokenVault)
		assert.Equal(t, SolVaultAddress(creator), m.SolVault)

		for addr, mint := range map[tx.AccountID]tx.AccountID{m.TokenVault: tokenMint, m.SolVault: solMint} {
			vault, r := token.LoadAccount(ctx, addr)
			require.Equal(t, tx.TesSUCCESS, r)
			assert.Equal(t, MarketAddress(creator), vault.Owner)
			assert.Equal(t, mint, vault.Mint)
			assert.Zero(t, vault.Amount)
		}

		events := ctx.Events()
		require.NotEmpty(t, events)
		assert.Equal(t, EventSetup, events[0].Type)
	})

	t.Run("duplicate", func(t *testing.T) {
		ctx := market(t, 3, 1000, 0, 0, 0)
		assert.Equal(t, tx.TecDUPLICATE, NewAMMSetup(creator, tokenMint, solMint, 1, 2).Apply(ctx))
	})

	t.Run("unknown mint", func(t *testing.T) {
		ctx := newContext(t, creator)
		assert.Equal(t, tx.TecNO_ENTRY, NewAMMSetup(creator, tokenMint, tx.AccountID{0x0f}, 1, 2).Apply(ctx))
	})
}

func TestAddLiquidity(t *testing.T) {
	t.Run("first deposit sets ratio", func(t *testing.T) {
		ctx := market(t, 3, 1000, 500, 1000, 0)
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(500), tokens)
		assert.Equal(t, uint64(1000), sols)
	})

	t.Run("later deposit follows ratio", func(t *testing.T) {
		ctx := market(t, 3, 1000, 500, 1000, 0)
		ata := keylet.AssociatedTokenAccount(creator, tokenMint).Key
		acct, _ := token.LoadAccount(ctx, ata)
		acct.Amount = 100
		require.Equal(t, tx.TesSUCCESS, ctx.Save(keylet.TokenAccount(ata), acct))
		solATA := keylet.AssociatedTokenAccount(creator, solMint).Key
		sols, _ := token.LoadAccount(ctx, solATA)
		sols.Amount = 250
		require.Equal(t, tx.TesSUCCESS, ctx.Save(keylet.TokenAccount(solATA), sols))

		// SolAmount is ignored once the pool has a price
		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, 100, 1).Apply(ctx), ctx.Reason())
		tokenVault, solVault := vaults(t, ctx)
		assert.Equal(t, uint64(600), tokenVault)
		assert.Equal(t, uint64(1200), solVault)
		assert.Equal(t, uint64(50), balance(t, ctx, solATA))
	})

	t.Run("first deposit takes amounts as supplied", func(t *testing.T) {
		ctx := newContext(t, creator)
		fund(t, ctx, creator, tokenMint, 10)
		fund(t, ctx, creator, solMint, 10)
		require.Equal(t, tx.TesSUCCESS, NewAMMSetup(creator, tokenMint, solMint, 3, 1000).Apply(ctx))
		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, 10, 0).Apply(ctx), ctx.Reason())
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(10), tokens)
		assert.Zero(t, sols)
	})

	t.Run("rate truncates before scaling", func(t *testing.T) {
		ctx := market(t, 0, 1, 1000, 1500, 0)
		solATA := keylet.AssociatedTokenAccount(creator, solMint).Key
		tokenATA := keylet.AssociatedTokenAccount(creator, tokenMint).Key
		for addr, amt := range map[tx.AccountID]uint64{tokenATA: 100, solATA: 500} {
			acct, _ := token.LoadAccount(ctx, addr)
			acct.Amount = amt
			require.Equal(t, tx.TesSUCCESS, ctx.Save(keylet.TokenAccount(addr), acct))
		}

		// 1500/1000 truncates to 1, so 100 tokens take 100 sols
		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, 100, 0).Apply(ctx), ctx.Reason())
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(1100), tokens)
		assert.Equal(t, uint64(1600), sols)
		assert.Equal(t, uint64(400), balance(t, ctx, solATA))
	})

	t.Run("rate below one takes no sol", func(t *testing.T) {
		ctx := newContext(t, creator)
		fund(t, ctx, creator, tokenMint, 2100)
		fund(t, ctx, creator, solMint, 1000)
		require.Equal(t, tx.TesSUCCESS, NewAMMSetup(creator, tokenMint, solMint, 0, 1).Apply(ctx))
		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, 2000, 1000).Apply(ctx), ctx.Reason())

		require.Equal(t, tx.TesSUCCESS, NewAddLiquidity(creator, 100, 0).Apply(ctx), ctx.Reason())
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(2100), tokens)
		assert.Equal(t, uint64(1000), sols)

		events := ctx.Events()
		last := events[len(events)-1]
		assert.Equal(t, EventLiquidity, last.Type)
		assert.Equal(t, uint64(0), last.Attributes["sol_amount"])
	})

	t.Run("insufficient balance", func(t *testing.T) {
		ctx := newContext(t, creator)
		fund(t, ctx, creator, tokenMint, 500)
		fund(t, ctx, creator, solMint, 999)
		require.Equal(t, tx.TesSUCCESS, NewAMMSetup(creator, tokenMint, solMint, 0, 1).Apply(ctx))
		assert.Equal(t, tx.TecINSUFFICIENT_BALANCE, NewAddLiquidity(creator, 500, 1000).Apply(ctx))
		assert.Equal(t, tx.TecINSUFFICIENT_BALANCE, NewAddLiquidity(creator, 501, 10).Apply(ctx))
	})

	t.Run("creator must sign", func(t *testing.T) {
		ctx := newContext(t)
		fund(t, ctx, creator, tokenMint, 10)
		fund(t, ctx, creator, solMint, 10)
		require.Equal(t, tx.TesSUCCESS, NewAMMSetup(creator, tokenMint, solMint, 0, 1).Apply(ctx))
		assert.Equal(t, tx.TefBAD_AUTH, NewAddLiquidity(creator, 10, 10).Apply(ctx))
	})

	t.Run("no market", func(t *testing.T) {
		ctx := newContext(t, creator)
		assert.Equal(t, tx.TecNO_ENTRY, NewAddLiquidity(creator, 10, 10).Apply(ctx))
	})
}

func TestSwapTokens(t *testing.T) {
	t.Run("token to sol", func(t *testing.T) {
		ctx := market(t, 3, 1000, 100000, 100000, 100000)
		require.Equal(t, tx.TesSUCCESS, NewSwapTokens(trader, creator, 100000, TokenToSol).Apply(ctx), ctx.Reason())

		assert.Zero(t, balance(t, ctx, keylet.AssociatedTokenAccount(trader, tokenMint).Key))
		assert.Equal(t, uint64(149925), balance(t, ctx, keylet.AssociatedTokenAccount(trader, solMint).Key))
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(200000), tokens)
		assert.Equal(t, uint64(50075), sols)

		events := ctx.Events()
		last := events[len(events)-1]
		assert.Equal(t, EventSwap, last.Type)
		assert.Equal(t, uint64(49925), last.Attributes["amount_out"])
		assert.Equal(t, uint64(300), last.Attributes["fee"])
	})

	t.Run("sol to token", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1000, 1000, 100)
		require.Equal(t, tx.TesSUCCESS, NewSwapTokens(trader, creator, 100, SolToToken).Apply(ctx), ctx.Reason())

		assert.Zero(t, balance(t, ctx, keylet.AssociatedTokenAccount(trader, solMint).Key))
		assert.Equal(t, uint64(191), balance(t, ctx, keylet.AssociatedTokenAccount(trader, tokenMint).Key))
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(909), tokens)
		assert.Equal(t, uint64(1100), sols)
	})

	t.Run("product grows with fee", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1_000_000, 1_000_000, 1_000_000)
		tokens, sols := vaults(t, ctx)
		prev := amount.Product(tokens, sols)
		for i, in := range []uint64{1000, 5000, 2500, 9999, 1234} {
			dir := TokenToSol
			if i%2 == 1 {
				dir = SolToToken
			}
			require.Equal(t, tx.TesSUCCESS, NewSwapTokens(trader, creator, in, dir).Apply(ctx), ctx.Reason())
			tokens, sols = vaults(t, ctx)
			next := amount.Product(tokens, sols)
			assert.Equal(t, 1, next.Cmp(prev), "swap %d", i)
			prev = next
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1000, 1000, 99)
		assert.Equal(t, tx.TecINSUFFICIENT_BALANCE, NewSwapTokens(trader, creator, 100, SolToToken).Apply(ctx))
	})

	t.Run("empty pool", func(t *testing.T) {
		ctx := market(t, 3, 1000, 0, 0, 100)
		assert.Equal(t, tx.TecAMM_BALANCE, NewSwapTokens(trader, creator, 100, SolToToken).Apply(ctx))
	})

	t.Run("would drain pool", func(t *testing.T) {
		ctx := market(t, 0, 1, 1, 1, 100)
		assert.Equal(t, tx.TecAMM_BALANCE, NewSwapTokens(trader, creator, 10, TokenToSol).Apply(ctx))
		tokens, sols := vaults(t, ctx)
		assert.Equal(t, uint64(1), tokens)
		assert.Equal(t, uint64(1), sols)
	})

	t.Run("trader must sign", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1000, 1000, 100)
		op := NewSwapTokens(creator, creator, 10, SolToToken)
		op.Trader = trader
		assert.ElementsMatch(t, []tx.AccountID{creator, trader}, op.RequiredSigners())

		unsigned := tx.NewApplyContext(ctx.View, ctx.Config, zaptest.NewLogger(t), creator)
		assert.Equal(t, tx.TefBAD_AUTH, op.Apply(unsigned))
	})

	t.Run("receiving account of another owner", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1000, 1000, 100)
		op := NewSwapTokens(trader, creator, 10, SolToToken)
		op.TraderTokenAccount = keylet.AssociatedTokenAccount(creator, tokenMint).Key
		assert.Equal(t, tx.TecACCOUNT_MISMATCH, op.Apply(ctx))
	})

	t.Run("source of wrong mint", func(t *testing.T) {
		ctx := market(t, 3, 1000, 1000, 1000, 100)
		op := NewSwapTokens(trader, creator, 10, SolToToken)
		op.TraderSolAccount = keylet.AssociatedTokenAccount(trader, tokenMint).Key
		assert.Equal(t, tx.TecACCOUNT_MISMATCH, op.Apply(ctx))
	})
}

func TestVerifyPostconditions(t *testing.T) {
	q, err := Quote(pool(3, 1000, 100000, 100000), 100000, TokenToSol)
	require.NoError(t, err)

	ctx := newContext(t)
	assert.Equal(t, tx.TesSUCCESS, q.verify(ctx, 200000, q.NewPayout))

	ctx = newContext(t)
	assert.Equal(t, tx.TefINVARIANT_FAILED, q.verify(ctx, 200000, q.NewPayout-1))
	assert.Contains(t, ctx.Reason(), InvariantVaultBalance)

	bad := q
	bad.AmountOut = bad.PayoutBalance
	ctx = newContext(t)
	assert.Equal(t, tx.TefINVARIANT_FAILED, bad.verify(ctx, 200000, q.NewPayout))
	assert.Contains(t, ctx.Reason(), InvariantPayoutBound)

	shrunk := q
	shrunk.NewPayout = 1
	ctx = newContext(t)
	assert.Equal(t, tx.TefINVARIANT_FAILED, shrunk.verify(ctx, 200000, 1))
	assert.Contains(t, ctx.Reason(), InvariantConstantProduct)

	ctx = newContext(t)
	ctx.Config.InvariantPolicy = tx.InvariantPanic
	assert.Panics(t, func() { bad.verify(ctx, 200000, q.NewPayout) })
}

func TestValidate(t *testing.T) {
	zero := tx.AccountID{}
	tests := []struct {
		name string
		op   tx.Transaction
		code tx.Result
	}{
		{"setup ok", NewAMMSetup(creator, tokenMint, solMint, 3, 1000), tx.TesSUCCESS},
		{"setup zero fee", NewAMMSetup(creator, tokenMint, solMint, 0, 1), tx.TesSUCCESS},
		{"setup zero denominator", NewAMMSetup(creator, tokenMint, solMint, 0, 0), tx.TemBAD_FEE},
		{"setup fee of one", NewAMMSetup(creator, tokenMint, solMint, 5, 5), tx.TemBAD_FEE},
		{"setup same mints", NewAMMSetup(creator, tokenMint, tokenMint, 3, 1000), tx.TemBAD_AMM_TOKENS},
		{"setup zero mint", NewAMMSetup(creator, zero, solMint, 3, 1000), tx.TemINVALID_ACCOUNT_ID},
		{"liquidity ok", NewAddLiquidity(creator, 1, 0), tx.TesSUCCESS},
		{"liquidity zero", NewAddLiquidity(creator, 0, 10), tx.TemBAD_AMOUNT},
		{"swap ok", NewSwapTokens(trader, creator, 1, SolToToken), tx.TesSUCCESS},
		{"swap zero", NewSwapTokens(trader, creator, 0, SolToToken), tx.TemBAD_AMOUNT},
		{"swap no direction", NewSwapTokens(trader, creator, 1, DirectionInvalid), tx.TemMALFORMED},
		{"swap no creator", NewSwapTokens(trader, zero, 1, TokenToSol), tx.TemINVALID_ACCOUNT_ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op.Validate()
			if tc.code == tx.TesSUCCESS {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tc.code.String()+":"), err.Error())
		})
	}
}

func TestDirectionText(t *testing.T) {
	for _, d := range []Direction{SolToToken, TokenToSol} {
		text, err := d.MarshalText()
		require.NoError(t, err)
		var back Direction
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, d, back)
	}
	_, err := ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	d, err := ParseDirection("sol-to-token")
	require.NoError(t, err)
	assert.Equal(t, SolToToken, d)
}

func TestSwapFromJSON(t *testing.T) {
	op := NewSwapTokens(trader, creator, 42, TokenToSol)
	data, err := tx.ToJSON(op)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Direction":"TokenToSol"`)

	parsed, err := tx.FromJSON(data)
	require.NoError(t, err)
	got, ok := parsed.(*SwapTokens)
	require.True(t, ok)
	assert.Equal(t, TokenToSol, got.Direction)
	assert.Equal(t, uint64(42), got.AmountIn)
}
