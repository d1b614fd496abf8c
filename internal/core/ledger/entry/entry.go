package entry

import (
	"fmt"
)

// Type represents a ledger entry type. The low byte is stored as the
// first byte of every persisted entry.
type Type uint16

// All known ledger entry types
const (
	TypeInvalid Type = 0x0000

	// Native balances used to post reserves
	TypeAccountRoot Type = 0x0061

	// Token program
	TypeMint         Type = 0x006d
	TypeTokenAccount Type = 0x0074

	// Escrow deals
	TypeTransactionState Type = 0x0065

	// AMM markets
	TypeMarketState Type = 0x004d

	// Replay protection records
	TypeNonce Type = 0x006e
)

// String returns the string representation of the Type
func (t Type) String() string {
	switch t {
	case TypeAccountRoot:
		return "AccountRoot"
	case TypeMint:
		return "Mint"
	case TypeTokenAccount:
		return "TokenAccount"
	case TypeTransactionState:
		return "TransactionState"
	case TypeMarketState:
		return "MarketState"
	case TypeNonce:
		return "Nonce"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint16(t))
	}
}

// Byte returns the one byte tag used on disk.
func (t Type) Byte() byte {
	return byte(t)
}

// FromByte maps an on-disk tag back to its Type.
func FromByte(b byte) Type {
	switch t := Type(b); t {
	case TypeAccountRoot, TypeMint, TypeTokenAccount, TypeTransactionState, TypeMarketState, TypeNonce:
		return t
	default:
		return TypeInvalid
	}
}

// Entry defines the interface for all ledger entries
type Entry interface {
	Type() Type
	Validate() error
}
