package sle

import (
	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
)

// Stage is the settlement stage of an escrow deal.
type Stage uint8

const (
	StageInvalid        Stage = 0
	StageInitialized    Stage = 1
	StageFundsDeposited Stage = 2
	StageEscrowComplete Stage = 3
)

// StageFromCode maps a persisted stage code. Unknown codes map to StageInvalid.
func StageFromCode(code uint8) Stage {
	switch s := Stage(code); s {
	case StageInitialized, StageFundsDeposited, StageEscrowComplete:
		return s
	default:
		return StageInvalid
	}
}

func (s Stage) String() string {
	switch s {
	case StageInitialized:
		return "Initialized"
	case StageFundsDeposited:
		return "FundsDeposited"
	case StageEscrowComplete:
		return "EscrowComplete"
	default:
		return "Invalid"
	}
}

// TransactionState is the escrow deal record for a (player, beneficiary, mint)
// triple. The bumps rebuild the record and escrow account addresses.
type TransactionState struct {
	Player        AccountID `codec:"player" json:"player"`
	Beneficiary   AccountID `codec:"beneficiary" json:"beneficiary"`
	Mint          AccountID `codec:"mint" json:"mint"`
	EscrowAccount AccountID `codec:"escrow_account" json:"escrow_account"`
	Amount        uint64    `codec:"amount" json:"amount"`
	Stage         Stage     `codec:"stage" json:"stage"`
	StateBump     uint8     `codec:"state_bump" json:"state_bump"`
	EscrowBump    uint8     `codec:"escrow_bump" json:"escrow_bump"`
	Reserve       uint64    `codec:"reserve" json:"reserve"`
}

func (s *TransactionState) Type() entry.Type { return entry.TypeTransactionState }

func (s *TransactionState) Validate() error {
	if s.Player.IsZero() || s.Beneficiary.IsZero() || s.Mint.IsZero() {
		return ErrZeroAccountID
	}
	if StageFromCode(uint8(s.Stage)) == StageInvalid {
		return ErrInvalidStage
	}
	return nil
}

// Normalize maps an unknown stage code to StageInvalid.
func (s *TransactionState) Normalize() {
	s.Stage = StageFromCode(uint8(s.Stage))
}

// ParseTransactionState decodes a TransactionState entry. A stage code the
// program does not know decodes as StageInvalid rather than failing.
func ParseTransactionState(data []byte) (*TransactionState, error) {
	return parse[TransactionState](data)
}
