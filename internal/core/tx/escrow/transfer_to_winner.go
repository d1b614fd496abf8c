package escrow

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeTransferToWinner, func() tx.Transaction {
		return &TransferToWinner{BaseTx: *tx.NewBaseTx(tx.TypeTransferToWinner, tx.AccountID{})}
	})
}

// TransferToWinner pays the whole escrow to Winner and destroys the deal.
// The funds move under the deal authority, so no party signature is needed.
type TransferToWinner struct {
	tx.BaseTx
	Deal

	// Winner receives 2*amount (required)
	Winner tx.AccountID `json:"Winner" codec:"winner"`

	// WinnerTokenAccount defaults to the winner's associated token account
	WinnerTokenAccount tx.AccountID `json:"WinnerTokenAccount,omitempty" codec:"winner_token_account"`
}

// NewTransferToWinner creates a new TransferToWinner operation
func NewTransferToWinner(submitter tx.AccountID, d Deal, winner tx.AccountID) *TransferToWinner {
	return &TransferToWinner{
		BaseTx: *tx.NewBaseTx(tx.TypeTransferToWinner, submitter),
		Deal:   d,
		Winner: winner,
	}
}

// TxType returns the operation type
func (w *TransferToWinner) TxType() tx.Type {
	return tx.TypeTransferToWinner
}

// Validate validates the TransferToWinner operation
func (w *TransferToWinner) Validate() error {
	if err := w.BaseTx.Validate(); err != nil {
		return err
	}
	if err := w.Deal.check(); err != nil {
		return err
	}
	if w.Winner.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Winner is required")
	}
	return nil
}

// Scope returns the deal record
func (w *TransferToWinner) Scope() [32]byte {
	return w.Address()
}

func (w *TransferToWinner) winnerAccount() tx.AccountID {
	if !w.WinnerTokenAccount.IsZero() {
		return w.WinnerTokenAccount
	}
	return keylet.AssociatedTokenAccount(w.Winner, w.Mint).Key
}

// Apply applies a TransferToWinner operation
func (w *TransferToWinner) Apply(ctx *tx.ApplyContext) tx.Result {
	state, r := loadState(ctx, w.Deal, sle.StageFundsDeposited)
	if r != tx.TesSUCCESS {
		return r
	}

	dest := w.winnerAccount()
	acct, r := token.LoadAccount(ctx, dest)
	if r != tx.TesSUCCESS {
		return r
	}
	if acct.Mint != state.Mint || acct.Owner != w.Winner {
		return ctx.Fail(tx.TecACCOUNT_MISMATCH, "%s is not a %s account of %s", dest, state.Mint, w.Winner)
	}

	total, r := checkCustody(ctx, state)
	if r != tx.TesSUCCESS {
		return r
	}
	auth, r := dealAuthority(ctx, state)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := token.Transfer(ctx, total, state.EscrowAccount, dest, auth); r != tx.TesSUCCESS {
		return r
	}

	state.Stage = sle.StageEscrowComplete
	attrs := w.attrs(state)
	attrs["winner"] = w.Winner.String()
	attrs["paid"] = total

	if r := release(ctx, w.Deal, state, auth); r != tx.TesSUCCESS {
		return r
	}
	ctx.Emit(EventSettled, w.Address(), attrs)
	return tx.TesSUCCESS
}
