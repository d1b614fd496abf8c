package sle

import "github.com/LeJamon/goCustody/internal/core/ledger/entry"

// AccountRoot holds the native balance of an identity. It only funds and
// receives entry reserves.
type AccountRoot struct {
	Account AccountID `codec:"account" json:"account"`
	Balance uint64    `codec:"balance" json:"balance"`
}

func (a *AccountRoot) Type() entry.Type { return entry.TypeAccountRoot }

func (a *AccountRoot) Validate() error {
	if a.Account.IsZero() {
		return ErrZeroAccountID
	}
	return nil
}

// ParseAccountRoot decodes an AccountRoot entry.
func ParseAccountRoot(data []byte) (*AccountRoot, error) {
	return parse[AccountRoot](data)
}
