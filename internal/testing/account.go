package testing

import (
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/crypto/algorithms/ed25519"
)

// Account is a test identity with its signing key.
type Account struct {
	// Name is a human-readable identifier for the account (used for debugging).
	Name string

	Keypair *ed25519.Keypair

	// ID is the identity, the ed25519 public key
	ID sle.AccountID
}

// NewAccount creates a new test account with a deterministic keypair derived from the name.
// Using the same name will always produce the same account, making tests reproducible.
func NewAccount(name string) *Account {
	kp := ed25519.GenerateKeypair([]byte("custody test account " + name))
	return &Account{
		Name:    name,
		Keypair: kp,
		ID:      sle.AccountID(kp.Public),
	}
}

// Address returns the base58 identity.
func (a *Account) Address() string {
	return a.ID.String()
}

// TokenAccount returns the associated token account of a for mint.
func (a *Account) TokenAccount(mint sle.AccountID) sle.AccountID {
	return keylet.AssociatedTokenAccount(a.ID, mint).Key
}

func (a *Account) String() string {
	return a.Name
}
