package escrow

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeDepositByBothParties, func() tx.Transaction {
		return &DepositByBothParties{BaseTx: *tx.NewBaseTx(tx.TypeDepositByBothParties, tx.AccountID{})}
	})
}

// DepositByBothParties moves Amount from each party's associated token
// account into escrow. Both parties must sign.
type DepositByBothParties struct {
	tx.BaseTx
	Deal

	// Amount is the deposit of each party (required)
	Amount uint64 `json:"Amount" codec:"amount"`
}

// NewDepositByBothParties creates a new DepositByBothParties operation
func NewDepositByBothParties(submitter tx.AccountID, d Deal, amt uint64) *DepositByBothParties {
	return &DepositByBothParties{
		BaseTx: *tx.NewBaseTx(tx.TypeDepositByBothParties, submitter),
		Deal:   d,
		Amount: amt,
	}
}

// TxType returns the operation type
func (d *DepositByBothParties) TxType() tx.Type {
	return tx.TypeDepositByBothParties
}

// Validate validates the DepositByBothParties operation
func (d *DepositByBothParties) Validate() error {
	if err := d.BaseTx.Validate(); err != nil {
		return err
	}
	if err := d.Deal.check(); err != nil {
		return err
	}
	if d.Amount == 0 {
		return errors.New("temBAD_AMOUNT: Amount must be positive")
	}
	return nil
}

// RequiredSigners returns the submitter and both parties
func (d *DepositByBothParties) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(d.Account, d.Player, d.Beneficiary)
}

// Scope returns the deal record
func (d *DepositByBothParties) Scope() [32]byte {
	return d.Address()
}

// Apply applies a DepositByBothParties operation
func (d *DepositByBothParties) Apply(ctx *tx.ApplyContext) tx.Result {
	state, r := loadState(ctx, d.Deal, sle.StageInitialized)
	if r != tx.TesSUCCESS {
		return r
	}
	total, err := amount.Mul(d.Amount, 2)
	if err != nil {
		return ctx.FailErr(err)
	}

	for _, party := range []tx.AccountID{d.Player, d.Beneficiary} {
		auth, r := ctx.SignerAuthority(party)
		if r != tx.TesSUCCESS {
			return r
		}
		from := keylet.AssociatedTokenAccount(party, d.Mint).Key
		if r := token.Transfer(ctx, d.Amount, from, state.EscrowAccount, auth); r != tx.TesSUCCESS {
			return r
		}
	}

	state.Amount = d.Amount
	state.Stage = sle.StageFundsDeposited
	if r := ctx.Save(d.StateKeylet().Keylet, state); r != tx.TesSUCCESS {
		return r
	}

	attrs := d.attrs(state)
	attrs["escrow_total"] = total
	ctx.Emit(EventDeposit, d.Address(), attrs)
	return tx.TesSUCCESS
}
