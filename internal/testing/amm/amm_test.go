package amm_test

import (
	"context"
	"testing"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	ammtx "github.com/LeJamon/goCustody/internal/core/tx/amm"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	jtx "github.com/LeJamon/goCustody/internal/testing"
	"github.com/LeJamon/goCustody/internal/testing/amm"
	"github.com/stretchr/testify/require"
)

type market struct {
	env       *jtx.TestEnv
	creator   *jtx.Account
	trader    *jtx.Account
	tokenMint sle.AccountID
	solMint   sle.AccountID
}

// newMarket opens a market of a fresh creator holding tokens and sols, and
// a trader holding traderFunds of each mint. No liquidity is added.
func newMarket(t *testing.T, setup func(*amm.SetupBuilder), tokens, sols, traderFunds uint64) *market {
	t.Helper()
	env := jtx.NewTestEnv(t)
	m := &market{
		env:     env,
		creator: jtx.NewAccount("creator"),
		trader:  jtx.NewAccount("trader"),
	}
	env.Fund(m.creator, m.trader)
	m.tokenMint = env.CreateMint(env.Authority(), "token")
	m.solMint = env.CreateMint(env.Authority(), "sol")
	for _, grant := range []struct {
		mint sle.AccountID
		acc  *jtx.Account
		amt  uint64
	}{
		{m.tokenMint, m.creator, tokens},
		{m.solMint, m.creator, sols},
		{m.tokenMint, m.trader, traderFunds},
		{m.solMint, m.trader, traderFunds},
	} {
		if grant.amt > 0 {
			env.MintTo(grant.mint, grant.acc, grant.amt)
		}
	}

	b := amm.Setup(m.creator, m.tokenMint, m.solMint)
	if setup != nil {
		setup(b)
	}
	jtx.RequireTxSuccess(t, env.Submit(b.Build(), m.creator))
	return m
}

// liquid opens a market and deposits all of the creator's funds.
func liquid(t *testing.T, tokens, sols, traderFunds uint64) *market {
	t.Helper()
	m := newMarket(t, nil, tokens, sols, traderFunds)
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, tokens, sols).Build(), m.creator))
	return m
}

func (m *market) requireVaults(t *testing.T, tokens, sols uint64) {
	t.Helper()
	jtx.RequireTokenBalance(t, m.env, ammtx.TokenVaultAddress(m.creator.ID), tokens)
	jtx.RequireTokenBalance(t, m.env, ammtx.SolVaultAddress(m.creator.ID), sols)
}

func TestAMM_SetupOpensEmptyVaults(t *testing.T) {
	m := newMarket(t, nil, 0, 0, 0)
	m.requireVaults(t, 0, 0)

	var state sle.MarketState
	require.True(t, m.env.ReadEntry(keylet.MarketState(m.creator.ID).Keylet, &state))
	require.Equal(t, uint64(amm.DefaultFeeNumerator), state.FeeNumerator)
	require.Equal(t, uint64(amm.DefaultFeeDenominator), state.FeeDenominator)
	require.Equal(t, m.creator.ID, state.Creator)

	result := m.env.Submit(amm.Setup(m.creator, m.tokenMint, m.solMint).Build(), m.creator)
	jtx.RequireTxFail(t, result, tx.TecDUPLICATE)
}

func TestAMM_SetupRejectsSameMint(t *testing.T) {
	env := jtx.NewTestEnv(t)
	creator := jtx.NewAccount("creator")
	env.Fund(creator)
	mint := env.CreateMint(env.Authority(), "token")

	result := env.Submit(amm.Setup(creator, mint, mint).Build(), creator)
	jtx.RequireTxFail(t, result, tx.TemBAD_AMM_TOKENS)
}

func TestAMM_AddLiquidityKeepsRatio(t *testing.T) {
	m := newMarket(t, nil, 1000, 2000, 0)

	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 500, 1000).Build(), m.creator))
	m.requireVaults(t, 500, 1000)

	// The requested sol amount is ignored once the price is set
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 100, 1).Build(), m.creator))
	m.requireVaults(t, 600, 1200)
	jtx.RequireHolding(t, m.env, m.creator, m.tokenMint, 400)
	jtx.RequireHolding(t, m.env, m.creator, m.solMint, 800)
}

func TestAMM_FirstDepositTakesAmountsAsSupplied(t *testing.T) {
	m := newMarket(t, nil, 1000, 1000, 0)

	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 500, 0).Build(), m.creator))
	m.requireVaults(t, 500, 0)

	// A pool without sols prices later deposits at zero
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 100, 900).Build(), m.creator))
	m.requireVaults(t, 600, 0)
	jtx.RequireHolding(t, m.env, m.creator, m.solMint, 1000)
}

func TestAMM_AddLiquidityTruncatesRate(t *testing.T) {
	m := newMarket(t, nil, 1100, 1600, 0)
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 1000, 1500).Build(), m.creator))

	// 1500/1000 truncates to one sol per token
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 100, 0).Build(), m.creator))
	m.requireVaults(t, 1100, 1600)
	jtx.RequireHolding(t, m.env, m.creator, m.solMint, 0)
}

func TestAMM_AddLiquidityBelowUnitRate(t *testing.T) {
	m := newMarket(t, nil, 2100, 1000, 0)
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 2000, 1000).Build(), m.creator))

	// 1000/2000 truncates to zero, so the deposit takes tokens only
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 100, 0).Build(), m.creator))
	m.requireVaults(t, 2100, 1000)
	jtx.RequireHolding(t, m.env, m.creator, m.tokenMint, 0)
}

func TestAMM_OnlyCreatorProvidesLiquidity(t *testing.T) {
	m := newMarket(t, nil, 1000, 1000, 1000)

	op := amm.AddLiquidity(m.creator, 500, 500).From(m.trader.TokenAccount(m.tokenMint), m.trader.TokenAccount(m.solMint)).Build()
	jtx.RequireTxFail(t, m.env.Submit(op, m.creator), tx.TefBAD_AUTH)
}

// --------------------------------------------------------------------------
// Swaps
// --------------------------------------------------------------------------

func TestAMM_SwapFeeTruncatesToZero(t *testing.T) {
	m := liquid(t, 1000, 1000, 1000)

	result := m.env.Submit(amm.TokenToSol(m.trader, m.creator, 100).Build(), m.trader)
	jtx.RequireTxSuccess(t, result)

	// 100*3/1000 floors to zero; 1000*1000/1100 floors to 909
	m.requireVaults(t, 1100, 909)
	jtx.RequireHolding(t, m.env, m.trader, m.tokenMint, 900)
	jtx.RequireHolding(t, m.env, m.trader, m.solMint, 1091)

	events := m.env.Events(ammtx.MarketAddress(m.creator.ID))
	require.Equal(t, ammtx.EventSwap, events[len(events)-1].Type)
	require.EqualValues(t, 0, events[len(events)-1].Attributes["fee"])
	require.EqualValues(t, 91, events[len(events)-1].Attributes["amount_out"])
}

func TestAMM_SwapChargesFee(t *testing.T) {
	m := liquid(t, 100000, 100000, 100000)

	result := m.env.Submit(amm.TokenToSol(m.trader, m.creator, 100000).Build(), m.trader)
	jtx.RequireTxSuccess(t, result)

	// fee 300, k = 1e10, floor(1e10 / 199700) = 50075
	m.requireVaults(t, 200000, 50075)
	jtx.RequireHolding(t, m.env, m.trader, m.tokenMint, 0)
	jtx.RequireHolding(t, m.env, m.trader, m.solMint, 149925)

	events := m.env.Events(ammtx.MarketAddress(m.creator.ID))
	last := events[len(events)-1]
	require.EqualValues(t, 300, last.Attributes["fee"])
	require.EqualValues(t, 49925, last.Attributes["amount_out"])
	require.Equal(t, "10015000000", last.Attributes["product"])
}

func TestAMM_SwapBothDirections(t *testing.T) {
	m := newMarket(t, func(b *amm.SetupBuilder) { b.NoFee() }, 1000, 2000, 1000)
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 1000, 2000).Build(), m.creator))

	jtx.RequireTxSuccess(t, m.env.Submit(amm.SolToToken(m.trader, m.creator, 500).Build(), m.trader))
	// 2e6 / 2500 = 800
	m.requireVaults(t, 800, 2500)

	jtx.RequireTxSuccess(t, m.env.Submit(amm.TokenToSol(m.trader, m.creator, 200).Build(), m.trader))
	// 2e6 / 1000 = 2000
	m.requireVaults(t, 1000, 2000)
	jtx.RequireHolding(t, m.env, m.trader, m.tokenMint, 1000)
	jtx.RequireHolding(t, m.env, m.trader, m.solMint, 1000)
}

func TestAMM_SwapCannotDrainVault(t *testing.T) {
	m := liquid(t, 1, 1, 1000)

	jtx.AssertNoBalanceChange(t, m.env, func() {
		result := m.env.Submit(amm.SolToToken(m.trader, m.creator, 5).Build(), m.trader)
		jtx.RequireTxFail(t, result, tx.TecAMM_BALANCE)
	}, ammtx.TokenVaultAddress(m.creator.ID), ammtx.SolVaultAddress(m.creator.ID), m.trader.TokenAccount(m.solMint))
}

func TestAMM_SwapInsufficientBalance(t *testing.T) {
	m := liquid(t, 1000, 1000, 10)

	result := m.env.Submit(amm.TokenToSol(m.trader, m.creator, 11).Build(), m.trader)
	jtx.RequireTxFail(t, result, tx.TecINSUFFICIENT_BALANCE)
	m.requireVaults(t, 1000, 1000)
}

func TestAMM_SwapNeedsTraderSignature(t *testing.T) {
	m := liquid(t, 1000, 1000, 1000)

	op := amm.TokenToSol(m.trader, m.creator, 10).Build()
	op.Account = m.creator.ID
	jtx.RequireTxFail(t, m.env.Submit(op, m.creator), tx.TemBAD_SIGNER)
}

func TestAMM_VaultsMoveOnlyUnderMarketAuthority(t *testing.T) {
	m := liquid(t, 1000, 1000, 0)

	op := token.NewTokenTransfer(m.creator.ID, ammtx.TokenVaultAddress(m.creator.ID), m.creator.TokenAccount(m.tokenMint), 10)
	jtx.RequireTxFail(t, m.env.Submit(op, m.creator), tx.TefBAD_AUTH)
	m.requireVaults(t, 1000, 1000)
}

func TestAMM_ReplayedSwapIsRejected(t *testing.T) {
	m := liquid(t, 1000, 1000, 1000)

	op := m.env.Sign(amm.TokenToSol(m.trader, m.creator, 10).Nonce(1).Build(), m.trader)
	jtx.RequireTxSuccess(t, m.env.Engine().Apply(context.Background(), op))
	jtx.RequireTxFail(t, m.env.Engine().Apply(context.Background(), op), tx.TefALREADY)

	// Submitting the same swap again is a new operation
	jtx.RequireTxSuccess(t, m.env.Submit(amm.TokenToSol(m.trader, m.creator, 10).Build(), m.trader))
	jtx.RequireHolding(t, m.env, m.trader, m.tokenMint, 980)
}

func TestAMM_BatchedSwapsKeepOrder(t *testing.T) {
	m := newMarket(t, func(b *amm.SetupBuilder) { b.NoFee() }, 1000, 1000, 1000)
	jtx.RequireTxSuccess(t, m.env.Submit(amm.AddLiquidity(m.creator, 1000, 1000).Build(), m.creator))

	var ops []tx.Transaction
	for i := uint64(0); i < 4; i++ {
		ops = append(ops, m.env.Sign(amm.TokenToSol(m.trader, m.creator, 100).Nonce(i).Build(), m.trader))
	}
	for _, res := range m.env.SubmitBatch(ops...) {
		jtx.RequireTxSuccess(t, res)
	}

	// Each swap prices against the vaults the previous one left:
	// 1e6/1100 = 909, 999900/1200 = 833, 999600/1300 = 768, 998400/1400 = 713
	m.requireVaults(t, 1400, 713)
	jtx.RequireHolding(t, m.env, m.trader, m.solMint, 1287)
}
