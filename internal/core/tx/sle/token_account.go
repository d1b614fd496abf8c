package sle

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
)

// TokenAccount holds a balance of a single mint. Owner is the only
// authority that may move funds out of it.
type TokenAccount struct {
	Mint    AccountID `codec:"mint" json:"mint"`
	Owner   AccountID `codec:"owner" json:"owner"`
	Amount  uint64    `codec:"amount" json:"amount"`
	Reserve uint64    `codec:"reserve" json:"reserve"`
}

func (t *TokenAccount) Type() entry.Type { return entry.TypeTokenAccount }

func (t *TokenAccount) Validate() error {
	if t.Mint.IsZero() {
		return errors.New("token account mint is zero")
	}
	if t.Owner.IsZero() {
		return errors.New("token account owner is zero")
	}
	return nil
}

// ParseTokenAccount decodes a TokenAccount entry.
func ParseTokenAccount(data []byte) (*TokenAccount, error) {
	return parse[TokenAccount](data)
}
