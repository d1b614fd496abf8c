package escrow

import (
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypePullBack, func() tx.Transaction {
		return &PullBack{BaseTx: *tx.NewBaseTx(tx.TypePullBack, tx.AccountID{})}
	})
}

// PullBack refunds each party its deposit and destroys the deal.
type PullBack struct {
	tx.BaseTx
	Deal
}

// NewPullBack creates a new PullBack operation
func NewPullBack(submitter tx.AccountID, d Deal) *PullBack {
	return &PullBack{
		BaseTx: *tx.NewBaseTx(tx.TypePullBack, submitter),
		Deal:   d,
	}
}

// TxType returns the operation type
func (p *PullBack) TxType() tx.Type {
	return tx.TypePullBack
}

// Validate validates the PullBack operation
func (p *PullBack) Validate() error {
	if err := p.BaseTx.Validate(); err != nil {
		return err
	}
	return p.Deal.check()
}

// Scope returns the deal record
func (p *PullBack) Scope() [32]byte {
	return p.Address()
}

// Apply applies a PullBack operation
func (p *PullBack) Apply(ctx *tx.ApplyContext) tx.Result {
	state, r := loadState(ctx, p.Deal, sle.StageFundsDeposited)
	if r != tx.TesSUCCESS {
		return r
	}
	if _, r := checkCustody(ctx, state); r != tx.TesSUCCESS {
		return r
	}
	auth, r := dealAuthority(ctx, state)
	if r != tx.TesSUCCESS {
		return r
	}

	for _, party := range []tx.AccountID{state.Player, state.Beneficiary} {
		dest := keylet.AssociatedTokenAccount(party, state.Mint).Key
		if r := token.Transfer(ctx, state.Amount, state.EscrowAccount, dest, auth); r != tx.TesSUCCESS {
			return r
		}
	}

	attrs := p.attrs(state)
	attrs["refunded"] = state.Amount
	if r := release(ctx, p.Deal, state, auth); r != tx.TesSUCCESS {
		return r
	}
	ctx.Emit(EventPulledBack, p.Address(), attrs)
	return tx.TesSUCCESS
}
