package sle

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
)

// Mint describes a token kind and its issuing authority.
type Mint struct {
	Authority AccountID `codec:"authority" json:"authority"`
	Name      string    `codec:"name" json:"name"`
	Decimals  uint8     `codec:"decimals" json:"decimals"`
	Supply    uint64    `codec:"supply" json:"supply"`
	Reserve   uint64    `codec:"reserve" json:"reserve"`
}

func (m *Mint) Type() entry.Type { return entry.TypeMint }

func (m *Mint) Validate() error {
	if m.Authority.IsZero() {
		return errors.New("mint authority is zero")
	}
	return nil
}

// ParseMint decodes a Mint entry.
func ParseMint(data []byte) (*Mint, error) {
	return parse[Mint](data)
}
