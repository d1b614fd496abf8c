package keylet

import (
	"encoding/binary"

	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	crypto "github.com/LeJamon/goCustody/internal/crypto/common"
)

// Space identifiers for storage keys that are not program addresses
const (
	spaceAccount uint16 = 'a' // Account root
	spaceNonce   uint16 = 'n' // Applied operation record
)

// Seed prefixes for program derived addresses
const (
	seedTransactionState = "transaction-state"
	seedEscrowAccount    = "escrow-account"
	seedMarketState      = "market-state"
	seedTokenVault       = "token-vault"
	seedSolVault         = "sol-vault"
	seedMint             = "mint"
	seedAssociatedToken  = "associated-token"
)

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  [32]byte
}

// Derived is a keylet whose key is a program derived address. Seeds and
// Bump are exactly what CreateProgramAddress needs to rebuild Key.
type Derived struct {
	Keylet
	Seeds [][]byte
	Bump  uint8
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) [32]byte {
	// Prepend the space identifier as a 2-byte big-endian value
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes)
	inputs = append(inputs, data...)

	return crypto.Sha512Half(inputs...)
}

func derive(t entry.Type, seeds ...[]byte) Derived {
	addr, bump := MustFindProgramAddress(seeds...)
	return Derived{
		Keylet: Keylet{Type: t, Key: addr},
		Seeds:  seeds,
		Bump:   bump,
	}
}

// Account returns the keylet for the native balance entry of an identity.
func Account(id [32]byte) Keylet {
	return Keylet{
		Type: entry.TypeAccountRoot,
		Key:  indexHash(spaceAccount, id[:]),
	}
}

// Nonce returns the keylet recording that the operation with txHash was applied.
func Nonce(txHash [32]byte) Keylet {
	return Keylet{
		Type: entry.TypeNonce,
		Key:  indexHash(spaceNonce, txHash[:]),
	}
}

// TokenAccount returns the keylet for a token account stored at addr.
func TokenAccount(addr [32]byte) Keylet {
	return Keylet{Type: entry.TypeTokenAccount, Key: addr}
}

// MintAt returns the keylet for a mint stored at addr.
func MintAt(addr [32]byte) Keylet {
	return Keylet{Type: entry.TypeMint, Key: addr}
}

// Mint derives the address of the mint created by authority under name.
func Mint(authority [32]byte, name string) Derived {
	return derive(entry.TypeMint, []byte(seedMint), authority[:], []byte(name))
}

// AssociatedTokenAccount derives the default token account of owner for mint.
func AssociatedTokenAccount(owner, mint [32]byte) Derived {
	return derive(entry.TypeTokenAccount, []byte(seedAssociatedToken), owner[:], mint[:])
}

// TransactionStateSeeds returns the seed components of an escrow deal record.
func TransactionStateSeeds(player, beneficiary, mint [32]byte) [][]byte {
	return [][]byte{[]byte(seedTransactionState), player[:], beneficiary[:], mint[:]}
}

// TransactionState derives the escrow deal record for the key triple.
func TransactionState(player, beneficiary, mint [32]byte) Derived {
	return derive(entry.TypeTransactionState, TransactionStateSeeds(player, beneficiary, mint)...)
}

// EscrowAccount derives the token account that custodies a deal's funds.
func EscrowAccount(player, beneficiary, mint [32]byte) Derived {
	return derive(entry.TypeTokenAccount, []byte(seedEscrowAccount), player[:], beneficiary[:], mint[:])
}

// MarketStateSeeds returns the seed components of a market record.
func MarketStateSeeds(creator [32]byte) [][]byte {
	return [][]byte{[]byte(seedMarketState), creator[:]}
}

// MarketState derives the market record owned by creator.
func MarketState(creator [32]byte) Derived {
	return derive(entry.TypeMarketState, MarketStateSeeds(creator)...)
}

// TokenVault derives the token side vault of a market.
func TokenVault(market, creator [32]byte) Derived {
	return derive(entry.TypeTokenAccount, []byte(seedTokenVault), market[:], creator[:])
}

// SolVault derives the quote side vault of a market.
func SolVault(market, creator [32]byte) Derived {
	return derive(entry.TypeTokenAccount, []byte(seedSolVault), market[:], creator[:])
}
