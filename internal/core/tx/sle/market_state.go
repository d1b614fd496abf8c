package sle

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
)

// MarketState is the record of a constant product market owned by Creator.
// The vaults are token accounts owned by the market address.
type MarketState struct {
	Creator        AccountID `codec:"creator" json:"creator"`
	TokenMint      AccountID `codec:"token_mint" json:"token_mint"`
	SolMint        AccountID `codec:"sol_mint" json:"sol_mint"`
	FeeNumerator   uint64    `codec:"fee_numerator" json:"fee_numerator"`
	FeeDenominator uint64    `codec:"fee_denominator" json:"fee_denominator"`
	TokenVault     AccountID `codec:"token_vault" json:"token_vault"`
	SolVault       AccountID `codec:"sol_vault" json:"sol_vault"`
	StateBump      uint8     `codec:"state_bump" json:"state_bump"`
	TokenVaultBump uint8     `codec:"token_vault_bump" json:"token_vault_bump"`
	SolVaultBump   uint8     `codec:"sol_vault_bump" json:"sol_vault_bump"`
	Reserve        uint64    `codec:"reserve" json:"reserve"`
}

func (m *MarketState) Type() entry.Type { return entry.TypeMarketState }

func (m *MarketState) Validate() error {
	if m.Creator.IsZero() {
		return ErrZeroAccountID
	}
	if m.FeeDenominator == 0 || m.FeeNumerator >= m.FeeDenominator {
		return errors.New("fee fraction out of range")
	}
	return nil
}

// ParseMarketState decodes a MarketState entry.
func ParseMarketState(data []byte) (*MarketState, error) {
	return parse[MarketState](data)
}
