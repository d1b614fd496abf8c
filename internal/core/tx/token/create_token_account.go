package token

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
)

func init() {
	tx.Register(tx.TypeCreateTokenAccount, func() tx.Transaction {
		return &CreateTokenAccount{BaseTx: *tx.NewBaseTx(tx.TypeCreateTokenAccount, tx.AccountID{})}
	})
}

// CreateTokenAccount opens the associated token account of Owner for Mint.
// The submitting account is the payer.
type CreateTokenAccount struct {
	tx.BaseTx

	// Owner is the identity that will control the account (required)
	Owner tx.AccountID `json:"Owner" codec:"owner"`

	// Mint is the token kind the account holds (required)
	Mint tx.AccountID `json:"Mint" codec:"mint"`
}

// NewCreateTokenAccount creates a new CreateTokenAccount operation
func NewCreateTokenAccount(payer, owner, mint tx.AccountID) *CreateTokenAccount {
	return &CreateTokenAccount{
		BaseTx: *tx.NewBaseTx(tx.TypeCreateTokenAccount, payer),
		Owner:  owner,
		Mint:   mint,
	}
}

// TxType returns the operation type
func (c *CreateTokenAccount) TxType() tx.Type {
	return tx.TypeCreateTokenAccount
}

// Validate validates the CreateTokenAccount operation
func (c *CreateTokenAccount) Validate() error {
	if err := c.BaseTx.Validate(); err != nil {
		return err
	}
	if c.Owner.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Owner is required")
	}
	if c.Mint.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Mint is required")
	}
	return nil
}

// Scope returns the address of the new account
func (c *CreateTokenAccount) Scope() [32]byte {
	return keylet.AssociatedTokenAccount(c.Owner, c.Mint).Key
}

// Apply applies a CreateTokenAccount operation
func (c *CreateTokenAccount) Apply(ctx *tx.ApplyContext) tx.Result {
	if _, r := LoadMint(ctx, c.Mint); r != tx.TesSUCCESS {
		return r
	}
	addr := keylet.AssociatedTokenAccount(c.Owner, c.Mint).Key
	return OpenAccount(ctx, addr, c.Mint, c.Owner, c.Account)
}
