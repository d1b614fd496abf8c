package escrow

import (
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeTransactionSetup, func() tx.Transaction {
		return &TransactionSetup{BaseTx: *tx.NewBaseTx(tx.TypeTransactionSetup, tx.AccountID{})}
	})
}

// TransactionSetup creates a deal at stage Initialized with an empty escrow
// account. The player pays both reserves.
type TransactionSetup struct {
	tx.BaseTx
	Deal
}

// NewTransactionSetup creates a new TransactionSetup operation submitted by the player
func NewTransactionSetup(player, beneficiary, mint tx.AccountID) *TransactionSetup {
	return &TransactionSetup{
		BaseTx: *tx.NewBaseTx(tx.TypeTransactionSetup, player),
		Deal:   Deal{Player: player, Beneficiary: beneficiary, Mint: mint},
	}
}

// TxType returns the operation type
func (s *TransactionSetup) TxType() tx.Type {
	return tx.TypeTransactionSetup
}

// Validate validates the TransactionSetup operation
func (s *TransactionSetup) Validate() error {
	if err := s.BaseTx.Validate(); err != nil {
		return err
	}
	return s.Deal.check()
}

// RequiredSigners returns the submitter and the player
func (s *TransactionSetup) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(s.Account, s.Player)
}

// Scope returns the deal record
func (s *TransactionSetup) Scope() [32]byte {
	return s.Address()
}

// Apply applies a TransactionSetup operation
func (s *TransactionSetup) Apply(ctx *tx.ApplyContext) tx.Result {
	if _, r := token.LoadMint(ctx, s.Mint); r != tx.TesSUCCESS {
		return r
	}

	stateKey := s.StateKeylet()
	escrowKey := keylet.EscrowAccount(s.Player, s.Beneficiary, s.Mint)

	exists, err := ctx.View.Exists(stateKey.Keylet)
	if err != nil {
		return ctx.FailErr(err)
	}
	if exists {
		return ctx.Fail(tx.TecDUPLICATE, "deal %s already exists", stateKey.Key)
	}

	reserve, r := ctx.PostReserve(s.Player)
	if r != tx.TesSUCCESS {
		return r
	}
	state := &sle.TransactionState{
		Player:        s.Player,
		Beneficiary:   s.Beneficiary,
		Mint:          s.Mint,
		EscrowAccount: escrowKey.Key,
		Amount:        0,
		Stage:         sle.StageInitialized,
		StateBump:     stateKey.Bump,
		EscrowBump:    escrowKey.Bump,
		Reserve:       reserve,
	}
	if r := ctx.Create(stateKey.Keylet, state); r != tx.TesSUCCESS {
		return r
	}

	// The escrow account is owned by the deal record address
	if r := token.OpenAccount(ctx, escrowKey.Key, s.Mint, stateKey.Key, s.Player); r != tx.TesSUCCESS {
		return r
	}

	ctx.Emit(EventSetup, stateKey.Key, s.attrs(state))
	return tx.TesSUCCESS
}
