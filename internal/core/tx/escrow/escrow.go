// Package escrow implements the two-party escrow program: TransactionSetup,
// DepositByBothParties, TransferToWinner and PullBack.
//
// A deal is keyed by (player, beneficiary, mint). Its funds sit in an
// escrow token account owned by the deal record's program address, so
// they only move under the authority derived from the record's own fields.
package escrow

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

// Event types
const (
	EventSetup      = "escrow.setup"
	EventDeposit    = "escrow.deposit"
	EventSettled    = "escrow.settled"
	EventPulledBack = "escrow.pulled_back"
)

// InvariantCustody names the check that escrow holds exactly 2*amount
const InvariantCustody = "escrow_custody"

// Deal identifies an escrow deal
type Deal struct {
	Player      tx.AccountID `json:"Player" codec:"player"`
	Beneficiary tx.AccountID `json:"Beneficiary" codec:"beneficiary"`
	Mint        tx.AccountID `json:"Mint" codec:"mint"`
}

func (d Deal) check() error {
	if d.Player.IsZero() || d.Beneficiary.IsZero() || d.Mint.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Player, Beneficiary and Mint are required")
	}
	if d.Player == d.Beneficiary {
		return errors.New("temDST_IS_SRC: Beneficiary equals Player")
	}
	return nil
}

// StateKeylet returns the keylet of the deal record.
func (d Deal) StateKeylet() keylet.Derived {
	return keylet.TransactionState(d.Player, d.Beneficiary, d.Mint)
}

// Address returns the address of the deal record.
func (d Deal) Address() tx.AccountID {
	return d.StateKeylet().Key
}

// EscrowAddress returns the address of the deal's escrow token account.
func (d Deal) EscrowAddress() tx.AccountID {
	return keylet.EscrowAccount(d.Player, d.Beneficiary, d.Mint).Key
}

func (d Deal) attrs(state *sle.TransactionState) map[string]any {
	return map[string]any{
		"player":      d.Player.String(),
		"beneficiary": d.Beneficiary.String(),
		"mint":        d.Mint.String(),
		"amount":      state.Amount,
		"stage":       state.Stage.String(),
	}
}

// loadState reads the deal record and checks it is at stage want.
func loadState(ctx *tx.ApplyContext, d Deal, want sle.Stage) (*sle.TransactionState, tx.Result) {
	var state sle.TransactionState
	if r := ctx.Load(d.StateKeylet().Keylet, &state); r != tx.TesSUCCESS {
		return nil, r
	}
	if state.Stage != want {
		return nil, ctx.Fail(tx.TecSTAGE_INVALID, "deal is %s, operation requires %s", state.Stage, want)
	}
	return &state, tx.TesSUCCESS
}

// dealAuthority derives the authority of the deal record from its
// persisted fields. The record address must match, so a corrupt record
// can never speak for another deal.
func dealAuthority(ctx *tx.ApplyContext, state *sle.TransactionState) (tx.Authority, tx.Result) {
	seeds := keylet.TransactionStateSeeds(state.Player, state.Beneficiary, state.Mint)
	return ctx.DeriveAuthority(seeds, state.StateBump)
}

// checkCustody verifies the escrow account holds exactly twice the deposit.
func checkCustody(ctx *tx.ApplyContext, state *sle.TransactionState) (uint64, tx.Result) {
	total, err := amount.Mul(state.Amount, 2)
	if err != nil {
		return 0, ctx.Invariant(InvariantCustody, "deposit %d cannot be doubled", state.Amount)
	}
	escrow, r := token.LoadAccount(ctx, state.EscrowAccount)
	if r == tx.TecNO_ENTRY {
		return 0, ctx.Invariant(InvariantCustody, "escrow account %s is missing", state.EscrowAccount)
	}
	if r != tx.TesSUCCESS {
		return 0, r
	}
	if escrow.Amount != total {
		return 0, ctx.Invariant(InvariantCustody, "escrow holds %d, deal requires %d", escrow.Amount, total)
	}
	return total, tx.TesSUCCESS
}

// release closes the escrow account and the deal record, returning both
// reserves to the player.
func release(ctx *tx.ApplyContext, d Deal, state *sle.TransactionState, auth tx.Authority) tx.Result {
	if r := token.Close(ctx, state.EscrowAccount, auth, state.Player); r != tx.TesSUCCESS {
		return r
	}
	if r := ctx.ReturnReserve(state.Player, state.Reserve); r != tx.TesSUCCESS {
		return r
	}
	return ctx.Remove(d.StateKeylet().Keylet)
}
