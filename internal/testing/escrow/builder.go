// Package escrow provides fluent builders for escrow operations.
package escrow

import (
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/escrow"
	"github.com/LeJamon/goCustody/internal/testing"
)

// Deal identifies the escrow between player and beneficiary for mint.
func Deal(player, beneficiary *testing.Account, mint tx.AccountID) escrow.Deal {
	return escrow.Deal{Player: player.ID, Beneficiary: beneficiary.ID, Mint: mint}
}

// SetupBuilder provides a fluent interface for building TransactionSetup operations.
type SetupBuilder struct {
	deal      escrow.Deal
	submitter tx.AccountID
	nonce     uint64
}

// Setup creates a SetupBuilder submitted by the player.
func Setup(player, beneficiary *testing.Account, mint tx.AccountID) *SetupBuilder {
	return &SetupBuilder{deal: Deal(player, beneficiary, mint), submitter: player.ID}
}

// SubmittedBy sets the submitting account.
func (b *SetupBuilder) SubmittedBy(acc *testing.Account) *SetupBuilder {
	b.submitter = acc.ID
	return b
}

// Nonce keeps an otherwise identical setup distinct from an earlier one.
func (b *SetupBuilder) Nonce(n uint64) *SetupBuilder {
	b.nonce = n
	return b
}

// Build constructs the TransactionSetup operation.
func (b *SetupBuilder) Build() *escrow.TransactionSetup {
	op := escrow.NewTransactionSetup(b.deal.Player, b.deal.Beneficiary, b.deal.Mint)
	op.Account = b.submitter
	op.Nonce = b.nonce
	return op
}

// DepositBuilder provides a fluent interface for building DepositByBothParties operations.
type DepositBuilder struct {
	deal      escrow.Deal
	amount    uint64
	submitter tx.AccountID
	nonce     uint64
}

// Deposit creates a DepositBuilder submitted by the player.
func Deposit(player, beneficiary *testing.Account, mint tx.AccountID, amount uint64) *DepositBuilder {
	return &DepositBuilder{deal: Deal(player, beneficiary, mint), amount: amount, submitter: player.ID}
}

// SubmittedBy sets the submitting account.
func (b *DepositBuilder) SubmittedBy(acc *testing.Account) *DepositBuilder {
	b.submitter = acc.ID
	return b
}

// Nonce keeps an otherwise identical deposit distinct from an earlier one.
func (b *DepositBuilder) Nonce(n uint64) *DepositBuilder {
	b.nonce = n
	return b
}

// Build constructs the DepositByBothParties operation.
func (b *DepositBuilder) Build() *escrow.DepositByBothParties {
	op := escrow.NewDepositByBothParties(b.submitter, b.deal, b.amount)
	op.Nonce = b.nonce
	return op
}

// SettleBuilder provides a fluent interface for building TransferToWinner operations.
type SettleBuilder struct {
	deal         escrow.Deal
	winner       tx.AccountID
	tokenAccount tx.AccountID
	submitter    tx.AccountID
}

// Settle creates a SettleBuilder paying winner, submitted by the winner.
func Settle(player, beneficiary *testing.Account, mint tx.AccountID, winner *testing.Account) *SettleBuilder {
	return &SettleBuilder{deal: Deal(player, beneficiary, mint), winner: winner.ID, submitter: winner.ID}
}

// SubmittedBy sets the submitting account.
func (b *SettleBuilder) SubmittedBy(acc *testing.Account) *SettleBuilder {
	b.submitter = acc.ID
	return b
}

// To pays into addr instead of the winner's associated token account.
func (b *SettleBuilder) To(addr tx.AccountID) *SettleBuilder {
	b.tokenAccount = addr
	return b
}

// Build constructs the TransferToWinner operation.
func (b *SettleBuilder) Build() *escrow.TransferToWinner {
	op := escrow.NewTransferToWinner(b.submitter, b.deal, b.winner)
	op.WinnerTokenAccount = b.tokenAccount
	return op
}

// PullBackBuilder provides a fluent interface for building PullBack operations.
type PullBackBuilder struct {
	deal      escrow.Deal
	submitter tx.AccountID
}

// PullBack creates a PullBackBuilder submitted by the player.
func PullBack(player, beneficiary *testing.Account, mint tx.AccountID) *PullBackBuilder {
	return &PullBackBuilder{deal: Deal(player, beneficiary, mint), submitter: player.ID}
}

// SubmittedBy sets the submitting account.
func (b *PullBackBuilder) SubmittedBy(acc *testing.Account) *PullBackBuilder {
	b.submitter = acc.ID
	return b
}

// Build constructs the PullBack operation.
func (b *PullBackBuilder) Build() *escrow.PullBack {
	return escrow.NewPullBack(b.submitter, b.deal)
}
