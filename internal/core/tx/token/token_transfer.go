package token

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
)

func init() {
	tx.Register(tx.TypeTokenTransfer, func() tx.Transaction {
		return &TokenTransfer{BaseTx: *tx.NewBaseTx(tx.TypeTokenTransfer, tx.AccountID{})}
	})
}

// TokenTransfer moves tokens out of an account owned by the submitter.
type TokenTransfer struct {
	tx.BaseTx

	Source      tx.AccountID `json:"Source" codec:"source"`
	Destination tx.AccountID `json:"Destination" codec:"destination"`
	Amount      uint64       `json:"Amount" codec:"amount"`
}

// NewTokenTransfer creates a new TokenTransfer operation
func NewTokenTransfer(owner, source, destination tx.AccountID, amt uint64) *TokenTransfer {
	return &TokenTransfer{
		BaseTx:      *tx.NewBaseTx(tx.TypeTokenTransfer, owner),
		Source:      source,
		Destination: destination,
		Amount:      amt,
	}
}

// TxType returns the operation type
func (t *TokenTransfer) TxType() tx.Type {
	return tx.TypeTokenTransfer
}

// Validate validates the TokenTransfer operation
func (t *TokenTransfer) Validate() error {
	if err := t.BaseTx.Validate(); err != nil {
		return err
	}
	if t.Source.IsZero() || t.Destination.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Source and Destination are required")
	}
	if t.Source == t.Destination {
		return errors.New("temDST_IS_SRC: Destination equals Source")
	}
	if t.Amount == 0 {
		return errors.New("temBAD_AMOUNT: Amount must be positive")
	}
	return nil
}

// Scope returns the source account
func (t *TokenTransfer) Scope() [32]byte {
	return keylet.TokenAccount(t.Source).Key
}

// Apply applies a TokenTransfer operation
func (t *TokenTransfer) Apply(ctx *tx.ApplyContext) tx.Result {
	auth, r := ctx.SignerAuthority(t.Account)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := Transfer(ctx, t.Amount, t.Source, t.Destination, auth); r != tx.TesSUCCESS {
		return r
	}
	ctx.Emit("token.transfer", t.Source, map[string]any{
		"destination": t.Destination.String(),
		"amount":      t.Amount,
	})
	return tx.TesSUCCESS
}
