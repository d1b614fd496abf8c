package tx

import "fmt"

// Type represents an operation type code
type Type uint16

// All operation type codes
const (
	TypeInvalid Type = 0xFFFF // Invalid/unknown type

	// Token program
	TypeCreateMint         Type = 1
	TypeCreateTokenAccount Type = 2
	TypeMintTo             Type = 3
	TypeTokenTransfer      Type = 4

	// Escrow
	TypeTransactionSetup     Type = 10
	TypeDepositByBothParties Type = 11
	TypeTransferToWinner     Type = 12
	TypePullBack             Type = 13

	// AMM
	TypeAMMSetup     Type = 20
	TypeAddLiquidity Type = 21
	TypeSwapTokens   Type = 22
)

// String returns the string representation of the Type
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

var typeNames = map[Type]string{
	TypeCreateMint:           "CreateMint",
	TypeCreateTokenAccount:   "CreateTokenAccount",
	TypeMintTo:               "MintTo",
	TypeTokenTransfer:        "TokenTransfer",
	TypeTransactionSetup:     "TransactionSetup",
	TypeDepositByBothParties: "DepositByBothParties",
	TypeTransferToWinner:     "TransferToWinner",
	TypePullBack:             "PullBack",
	TypeAMMSetup:             "AMMSetup",
	TypeAddLiquidity:         "AddLiquidity",
	TypeSwapTokens:           "SwapTokens",
}

var typeNameMap = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

// TypeFromName returns the operation type for a given name
func TypeFromName(name string) (Type, bool) {
	t, ok := typeNameMap[name]
	return t, ok
}
