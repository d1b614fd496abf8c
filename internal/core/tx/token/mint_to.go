package token

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
)

func init() {
	tx.Register(tx.TypeMintTo, func() tx.Transaction {
		return &MintTo{BaseTx: *tx.NewBaseTx(tx.TypeMintTo, tx.AccountID{})}
	})
}

// MintTo issues new supply of Mint into the token account at Destination.
// The mint authority must sign.
type MintTo struct {
	tx.BaseTx

	Mint        tx.AccountID `json:"Mint" codec:"mint"`
	Destination tx.AccountID `json:"Destination" codec:"destination"`
	Amount      uint64       `json:"Amount" codec:"amount"`
}

// NewMintTo creates a new MintTo operation
func NewMintTo(authority, mint, destination tx.AccountID, amt uint64) *MintTo {
	return &MintTo{
		BaseTx:      *tx.NewBaseTx(tx.TypeMintTo, authority),
		Mint:        mint,
		Destination: destination,
		Amount:      amt,
	}
}

// TxType returns the operation type
func (m *MintTo) TxType() tx.Type {
	return tx.TypeMintTo
}

// Validate validates the MintTo operation
func (m *MintTo) Validate() error {
	if err := m.BaseTx.Validate(); err != nil {
		return err
	}
	if m.Mint.IsZero() || m.Destination.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Mint and Destination are required")
	}
	if m.Amount == 0 {
		return errors.New("temBAD_AMOUNT: Amount must be positive")
	}
	return nil
}

// Scope returns the mint, whose supply every MintTo updates
func (m *MintTo) Scope() [32]byte {
	return keylet.MintAt(m.Mint).Key
}

// Apply applies a MintTo operation
func (m *MintTo) Apply(ctx *tx.ApplyContext) tx.Result {
	mint, r := LoadMint(ctx, m.Mint)
	if r != tx.TesSUCCESS {
		return r
	}
	if _, r := ctx.SignerAuthority(mint.Authority); r != tx.TesSUCCESS {
		return r
	}

	dst, r := LoadAccount(ctx, m.Destination)
	if r != tx.TesSUCCESS {
		return r
	}
	if dst.Mint != m.Mint {
		return ctx.Fail(tx.TecACCOUNT_MISMATCH, "%s holds mint %s", m.Destination, dst.Mint)
	}

	supply, err := amount.Add(mint.Supply, m.Amount)
	if err != nil {
		return ctx.FailErr(err)
	}
	balance, err := amount.Add(dst.Amount, m.Amount)
	if err != nil {
		return ctx.FailErr(err)
	}
	mint.Supply = supply
	dst.Amount = balance

	if r := ctx.Save(keylet.MintAt(m.Mint), mint); r != tx.TesSUCCESS {
		return r
	}
	return ctx.Save(keylet.TokenAccount(m.Destination), dst)
}
