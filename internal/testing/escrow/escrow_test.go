// Package escrow_test contains integration tests for escrow deals, applied
// through the engine with real signatures.
package escrow_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	escrowtx "github.com/LeJamon/goCustody/internal/core/tx/escrow"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	jtx "github.com/LeJamon/goCustody/internal/testing"
	"github.com/LeJamon/goCustody/internal/testing/escrow"
	"github.com/stretchr/testify/require"
)

// dealEnv funds a player and a beneficiary with 1000 tokens each of a fresh mint.
func dealEnv(t *testing.T, opts ...jtx.Option) (*jtx.TestEnv, *jtx.Account, *jtx.Account, sle.AccountID) {
	t.Helper()
	env := jtx.NewTestEnv(t, opts...)
	player := jtx.NewAccount("player")
	beneficiary := jtx.NewAccount("beneficiary")
	env.Fund(player, beneficiary)

	mint := env.CreateMint(env.Authority(), "usd")
	env.MintTo(mint, player, 1000)
	env.MintTo(mint, beneficiary, 1000)
	return env, player, beneficiary, mint
}

// deposited runs setup and a deposit of amount by both parties.
func deposited(t *testing.T, env *jtx.TestEnv, player, beneficiary *jtx.Account, mint sle.AccountID, amount uint64) {
	t.Helper()
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))
	jtx.RequireTxSuccess(t, env.Submit(escrow.Deposit(player, beneficiary, mint, amount).Build(), player, beneficiary))
}

func loadDeal(t *testing.T, env *jtx.TestEnv, d escrowtx.Deal) (*sle.TransactionState, bool) {
	t.Helper()
	var state sle.TransactionState
	ok := env.ReadEntry(d.StateKeylet().Keylet, &state)
	return &state, ok
}

// --------------------------------------------------------------------------
// Settling to the winner
// --------------------------------------------------------------------------

func TestEscrow_SettleToPlayer(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)
	nativeBefore := env.Balance(player)

	deposited(t, env, player, beneficiary, mint, 100)
	jtx.RequireTokenBalance(t, env, d.EscrowAddress(), 200)
	state, ok := loadDeal(t, env, d)
	require.True(t, ok)
	require.Equal(t, sle.StageFundsDeposited, state.Stage)
	require.Equal(t, uint64(100), state.Amount)

	result := env.Submit(escrow.Settle(player, beneficiary, mint, player).Build(), player)
	jtx.RequireTxSuccess(t, result)

	jtx.RequireHolding(t, env, player, mint, 1100)
	jtx.RequireHolding(t, env, beneficiary, mint, 900)
	jtx.RequireEntryAbsent(t, env, d.StateKeylet().Keylet)
	jtx.RequireEntryAbsent(t, env, keylet.TokenAccount(d.EscrowAddress()))

	// Both reserves come back to the player
	jtx.RequireBalance(t, env, player, nativeBefore)

	events := env.Events(d.Address())
	require.Len(t, events, 3)
	require.Equal(t, escrowtx.EventSettled, events[2].Type)
}

func TestEscrow_SettleToBeneficiaryByAnyone(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	deposited(t, env, player, beneficiary, mint, 250)

	// The payout moves under the deal authority, so a third party may submit it
	outsider := jtx.NewAccount("outsider")
	env.Fund(outsider)
	op := escrow.Settle(player, beneficiary, mint, beneficiary).SubmittedBy(outsider).Build()
	jtx.RequireTxSuccess(t, env.Submit(op, outsider))

	jtx.RequireHolding(t, env, player, mint, 750)
	jtx.RequireHolding(t, env, beneficiary, mint, 1250)
}

func TestEscrow_SettleBeforeDeposit(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

	result := env.Submit(escrow.Settle(player, beneficiary, mint, player).Build(), player)
	jtx.RequireTxFail(t, result, tx.TecSTAGE_INVALID)
}

func TestEscrow_DuplicateSetup(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

	result := env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player)
	jtx.RequireTxFail(t, result, tx.TecDUPLICATE)
}

func TestEscrow_SetupAgainAfterSettle(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)
	deposited(t, env, player, beneficiary, mint, 100)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Settle(player, beneficiary, mint, beneficiary).Build(), beneficiary))

	deposited(t, env, player, beneficiary, mint, 50)
	jtx.RequireTokenBalance(t, env, d.EscrowAddress(), 100)
	jtx.RequireHolding(t, env, player, mint, 850)
	jtx.RequireHolding(t, env, beneficiary, mint, 1050)
}

// --------------------------------------------------------------------------
// Pulling back
// --------------------------------------------------------------------------

func TestEscrow_PullBack(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)
	deposited(t, env, player, beneficiary, mint, 100)

	jtx.RequireTxSuccess(t, env.Submit(escrow.PullBack(player, beneficiary, mint).Build(), player))

	jtx.RequireHolding(t, env, player, mint, 1000)
	jtx.RequireHolding(t, env, beneficiary, mint, 1000)
	jtx.RequireEntryAbsent(t, env, d.StateKeylet().Keylet)
	jtx.RequireEntryAbsent(t, env, keylet.TokenAccount(d.EscrowAddress()))

	// The triple can be used again
	deposited(t, env, player, beneficiary, mint, 10)
	jtx.RequireTokenBalance(t, env, d.EscrowAddress(), 20)
}

// --------------------------------------------------------------------------
// Authorization
// --------------------------------------------------------------------------

func TestEscrow_DepositNeedsBothSignatures(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

	result := env.Submit(escrow.Deposit(player, beneficiary, mint, 100).Build(), player)
	jtx.RequireTxFail(t, result, tx.TemBAD_SIGNER)
}

func TestEscrow_ForgedSignature(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

	op := escrow.Deposit(player, beneficiary, mint, 100).Build()
	env.Sign(op, player, beneficiary)
	op.Amount = 500

	jtx.RequireTxFail(t, env.Engine().Apply(context.Background(), op), tx.TefBAD_SIGNATURE)
}

func TestEscrow_SignersCannotMoveEscrowFunds(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)
	deposited(t, env, player, beneficiary, mint, 100)

	// Both parties sign, but neither owns the escrow account
	op := token.NewTokenTransfer(player.ID, d.EscrowAddress(), player.TokenAccount(mint), 200)
	jtx.RequireTxFail(t, env.Submit(op, player, beneficiary), tx.TefBAD_AUTH)
	jtx.RequireTokenBalance(t, env, d.EscrowAddress(), 200)
}

func TestEscrow_Replay(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	deposited(t, env, player, beneficiary, mint, 100)

	op := env.Sign(escrow.Settle(player, beneficiary, mint, player).Build(), player)
	jtx.RequireTxSuccess(t, env.Engine().Apply(context.Background(), op))
	jtx.RequireTxFail(t, env.Engine().Apply(context.Background(), op), tx.TefALREADY)
	jtx.RequireHolding(t, env, player, mint, 1100)
}

// --------------------------------------------------------------------------
// Atomicity
// --------------------------------------------------------------------------

func TestEscrow_FailedDepositLeavesNoTrace(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)
	jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

	// The player can cover 1000, the beneficiary cannot cover 1001
	env.MintTo(mint, player, 1)
	jtx.AssertNoBalanceChange(t, env, func() {
		result := env.Submit(escrow.Deposit(player, beneficiary, mint, 1001).Build(), player, beneficiary)
		jtx.RequireTxFail(t, result, tx.TecINSUFFICIENT_BALANCE)
	}, player.TokenAccount(mint), beneficiary.TokenAccount(mint), d.EscrowAddress())

	state, ok := loadDeal(t, env, d)
	require.True(t, ok)
	require.Equal(t, sle.StageInitialized, state.Stage)
	require.Zero(t, state.Amount)
	require.Len(t, env.Events(d.Address()), 1)
}

func TestEscrow_ConcurrentDeposits(t *testing.T) {
	env := jtx.NewTestEnv(t, jtx.WithWorkers(4))
	mint := env.CreateMint(env.Authority(), "usd")

	const deals = 8
	var (
		ops     []tx.Transaction
		players []*jtx.Account
	)
	for i := 0; i < deals; i++ {
		player := jtx.NewAccount(fmt.Sprintf("player-%d", i))
		beneficiary := jtx.NewAccount(fmt.Sprintf("beneficiary-%d", i))
		env.Fund(player, beneficiary)
		env.MintTo(mint, player, 100)
		env.MintTo(mint, beneficiary, 100)
		jtx.RequireTxSuccess(t, env.Submit(escrow.Setup(player, beneficiary, mint).Build(), player))

		ops = append(ops, env.Sign(escrow.Deposit(player, beneficiary, mint, 40).Build(), player, beneficiary))
		players = append(players, player, beneficiary)
	}

	for i, res := range env.SubmitBatch(ops...) {
		jtx.RequireTxSuccess(t, res)
		d := ops[i].(*escrowtx.DepositByBothParties).Deal
		jtx.RequireTokenBalance(t, env, d.EscrowAddress(), 80)
	}
	for _, acc := range players {
		jtx.RequireHolding(t, env, acc, mint, 60)
	}
}

func TestEscrow_SameScopeKeepsOrder(t *testing.T) {
	env, player, beneficiary, mint := dealEnv(t)
	d := escrow.Deal(player, beneficiary, mint)

	results := env.SubmitBatch(
		env.Sign(escrow.Setup(player, beneficiary, mint).Build(), player),
		env.Sign(escrow.Deposit(player, beneficiary, mint, 100).Build(), player, beneficiary),
		env.Sign(escrow.PullBack(player, beneficiary, mint).Build(), player),
	)
	for _, res := range results {
		jtx.RequireTxSuccess(t, res)
	}
	jtx.RequireEntryAbsent(t, env, d.StateKeylet().Keylet)
	jtx.RequireHolding(t, env, player, mint, 1000)
}

func TestEscrow_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	player := jtx.NewAccount("player")
	beneficiary := jtx.NewAccount("beneficiary")

	db, manager, err := ledger.OpenStore(ledger.BackendPebble, dir)
	require.NoError(t, err)
	l, err := ledger.New(db)
	require.NoError(t, err)

	env := jtx.NewTestEnvOnLedger(t, l)
	env.Fund(player, beneficiary)
	mint := env.CreateMint(env.Authority(), "usd")
	env.MintTo(mint, player, 1000)
	env.MintTo(mint, beneficiary, 1000)
	deposited(t, env, player, beneficiary, mint, 100)
	require.NoError(t, manager.Close())

	db, manager, err = ledger.OpenStore(ledger.BackendPebble, dir)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	l, err = ledger.New(db)
	require.NoError(t, err)

	env = jtx.NewTestEnvOnLedger(t, l)
	d := escrow.Deal(player, beneficiary, mint)
	state, ok := loadDeal(t, env, d)
	require.True(t, ok)
	require.Equal(t, sle.StageFundsDeposited, state.Stage)

	jtx.RequireTxSuccess(t, env.Submit(escrow.Settle(player, beneficiary, mint, beneficiary).Build(), beneficiary))
	jtx.RequireHolding(t, env, beneficiary, mint, 1100)
}
